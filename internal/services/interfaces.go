package services

import (
	"context"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

// WizardService manages server-side wizard session state.
type WizardService interface {
	CreateSession(ctx context.Context) (domain.WizardSession, error)
	GetSession(ctx context.Context, sessionID string) (domain.WizardSession, error)
	// UpdateFields merges the provided field values into the session. The
	// revision guards against superseded writers.
	UpdateFields(ctx context.Context, cmd UpdateFieldsCommand) (domain.WizardSession, error)
	// Advance moves to the next step when the current step's completion
	// predicate holds; otherwise the step is unchanged and FieldErrors
	// describe what is missing. Advancing from the terminal step submits
	// the order and resets the session.
	Advance(ctx context.Context, cmd StepCommand) (AdvanceResult, error)
	// Retreat moves to the previous step, never below the first.
	Retreat(ctx context.Context, cmd StepCommand) (domain.WizardSession, error)
	// Reset returns the session to its initial state and releases any
	// stored photo objects.
	Reset(ctx context.Context, cmd StepCommand) (domain.WizardSession, error)
}

// UpdateFieldsCommand carries a partial field update for a session.
type UpdateFieldsCommand struct {
	SessionID string
	Revision  int64

	CustomerName   *string
	BestieName     *string
	HairConcern    *string
	ContactName    *string
	ContactEmail   *string
	ContactPhone   *string
	ContactAddress *string
}

// StepCommand identifies the session and the revision the caller observed.
type StepCommand struct {
	SessionID string
	Revision  int64
}

// AdvanceResult reports the session after an advance attempt, flagging
// whether a terminal advance submitted an order.
type AdvanceResult struct {
	Session        domain.WizardSession
	Moved          bool
	OrderSubmitted bool
	CustomerID     string
}

// PhotoService manages the single photo owned by a wizard session.
type PhotoService interface {
	// Upload stores the photo, replacing (and deleting) any previous one.
	Upload(ctx context.Context, cmd UploadPhotoCommand) (domain.WizardSession, error)
	// Crop rasterises the selected region as a circular JPEG and stores it
	// alongside the original.
	Crop(ctx context.Context, cmd CropPhotoCommand) (domain.WizardSession, error)
	// Process sends the cropped photo through the upstream processing
	// service and records the resulting image URL on the session.
	Process(ctx context.Context, cmd ProcessPhotoCommand) (domain.WizardSession, error)
}

// UploadPhotoCommand carries an uploaded photo payload.
type UploadPhotoCommand struct {
	SessionID   string
	Revision    int64
	Source      domain.CaptureSource
	ContentType string
	Data        []byte
}

// CropPhotoCommand selects the square crop region for the stored photo.
type CropPhotoCommand struct {
	SessionID string
	Revision  int64
	Region    domain.CropRegion
}

// ProcessPhotoCommand requests upstream processing of the session's cropped photo.
type ProcessPhotoCommand struct {
	SessionID string
	Revision  int64
}

// ProcessingErrorKind is the closed set of upstream processing failures
// surfaced to callers. Anything not recognised maps to Unknown.
type ProcessingErrorKind string

const (
	ProcessingErrorUnsupportedFormat ProcessingErrorKind = "unsupported_format"
	ProcessingErrorNoFaceDetected    ProcessingErrorKind = "no_face_detected"
	ProcessingErrorTooLarge          ProcessingErrorKind = "too_large"
	ProcessingErrorUpstreamDown      ProcessingErrorKind = "upstream_unavailable"
	ProcessingErrorUnknown           ProcessingErrorKind = "unknown"
)

// ProcessingError carries the normalised upstream failure.
type ProcessingError struct {
	Kind    ProcessingErrorKind
	Message string
	Status  int
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	return "processing: " + string(e.Kind) + ": " + e.Message
}

// ProcessingClient sends a cropped photo to the upstream image-processing
// service and returns the hosted processed-image URL.
type ProcessingClient interface {
	ProcessImage(ctx context.Context, req ProcessImageRequest) (ProcessImageResult, error)
}

// ProcessImageRequest carries the image payload for upstream processing.
type ProcessImageRequest struct {
	SessionID   string
	ContentType string
	FileName    string
	Data        []byte
	Concern     domain.HairConcern
}

// ProcessImageResult is the upstream success payload.
type ProcessImageResult struct {
	ImageURL string
}

// CompositionService renders and exposes the shareable bottle artwork.
type CompositionService interface {
	// Render produces the composition for the session and stores it.
	Render(ctx context.Context, cmd RenderCompositionCommand) (CompositionResult, error)
	// ShareTargets lists the share destinations for a rendered composition.
	ShareTargets(ctx context.Context, sessionID string) ([]ShareTarget, error)
}

// RenderCompositionCommand identifies the session to render.
type RenderCompositionCommand struct {
	SessionID string
	Revision  int64
}

// CompositionResult describes the stored artwork and its download URL.
type CompositionResult struct {
	Session     domain.WizardSession
	ObjectPath  string
	DownloadURL string
	ExpiresAt   time.Time
}

// ShareTarget is one external destination the artwork can be shared to.
type ShareTarget struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// OrderService validates and persists submitted orders.
type OrderService interface {
	Submit(ctx context.Context, cmd SubmitOrderCommand) (SubmitOrderResult, error)
}

// SubmitOrderCommand carries the full set of order fields.
type SubmitOrderCommand struct {
	FirstName   string
	LastName    string
	BestieName  string
	Email       string
	PhoneNumber string
	Address     string
	HairConcern domain.HairConcern
	ImageURL    string
}

// SubmitOrderResult reports the stored customer record.
type SubmitOrderResult struct {
	Customer domain.Customer
}

// FieldErrors maps submitted field names onto human-readable messages.
type FieldErrors map[string]string

// ValidationError carries per-field failures for a rejected submission.
type ValidationError struct {
	Fields FieldErrors
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed"
}

// OrderEventPublisher announces accepted orders to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, message OrderCreatedMessage) (string, error)
}

// OrderCreatedMessage is the payload published when an order is accepted.
type OrderCreatedMessage struct {
	CustomerID  string    `json:"customerId"`
	FirstName   string    `json:"firstName"`
	BestieName  string    `json:"bestieName"`
	HairConcern string    `json:"hairConcern"`
	Email       string    `json:"email"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// CustomerService powers the admin dashboard.
type CustomerService interface {
	List(ctx context.Context, query CustomerListQuery) (CustomerListResult, error)
	UpdateStatus(ctx context.Context, customerID string, status domain.CustomerStatus) (domain.Customer, error)
	// ExportCSV writes the filtered customer listing as CSV.
	ExportCSV(ctx context.Context, query CustomerListQuery) ([]byte, error)
	Counts(ctx context.Context) (domain.CustomerStatusCounts, error)
}

// CustomerListQuery filters the admin customer listing.
type CustomerListQuery struct {
	Search string
	Status string
	Pager  domain.Pagination
}

// CustomerListResult is one page of the admin listing plus the dashboard counts.
type CustomerListResult struct {
	Customers     []domain.Customer
	NextPageToken string
	Counts        domain.CustomerStatusCounts
}

// AdminAuthService authenticates back-office users.
type AdminAuthService interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	// GeneratePassword mints a fresh random password for the account and
	// returns it in plain text exactly once.
	GeneratePassword(ctx context.Context, email string) (GeneratedPassword, error)
}

// LoginResult carries the bearer token issued on successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.AdminUser
}

// GeneratedPassword is the one-time plain text password response.
type GeneratedPassword struct {
	Email    string
	Password string
}
