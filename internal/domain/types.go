package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// HairConcern is the enumerated concern tag driving product theming and order metadata.
type HairConcern string

const (
	// HairConcernDullWeak represents the "Dull & Weak Hair" concern.
	HairConcernDullWeak HairConcern = "dull_weak"
	// HairConcernDryFrizzy represents the "Dry & Frizzy Hair" concern.
	HairConcernDryFrizzy HairConcern = "dry_frizzy"
	// HairConcernHairFall represents the "Hair Fall" concern.
	HairConcernHairFall HairConcern = "hair_fall"
)

// concernBackgrounds maps each concern to the brand colour used as the
// processed-photo background and the label backdrop.
var concernBackgrounds = map[HairConcern]string{
	HairConcernDullWeak:  "#F8C156",
	HairConcernDryFrizzy: "#9C2C7F",
	HairConcernHairFall:  "#8CC63F",
}

// Valid reports whether the concern is one of the supported tags.
func (c HairConcern) Valid() bool {
	_, ok := concernBackgrounds[c]
	return ok
}

// BackgroundColor returns the brand colour assigned to the concern.
// The zero string is returned for unknown concerns.
func (c HairConcern) BackgroundColor() string {
	return concernBackgrounds[c]
}

// HairConcerns lists the supported concern tags in display order.
func HairConcerns() []HairConcern {
	return []HairConcern{HairConcernDullWeak, HairConcernDryFrizzy, HairConcernHairFall}
}

// WizardStep indexes the fixed step sequence of the customization wizard.
type WizardStep int

const (
	// StepIntro is the landing step; advancing from it is never gated.
	StepIntro WizardStep = iota
	// StepNames collects the customer and bestie names.
	StepNames
	// StepConcern collects the hair concern selection.
	StepConcern
	// StepPhoto collects the uploaded or captured photo.
	StepPhoto
	// StepPreview shows the processed bottle; requires a processed image.
	StepPreview
	// StepContact is the terminal step; advancing submits the order.
	StepContact
)

// StepCount is the number of steps in the wizard sequence.
const StepCount = int(StepContact) + 1

// CaptureSource tags how a photo entered the wizard. The source is chosen
// once by capability detection at acquisition time.
type CaptureSource string

const (
	// CaptureSourceUpload is a manually selected file.
	CaptureSourceUpload CaptureSource = "upload"
	// CaptureSourceCamera is a native camera file input (mobile devices).
	CaptureSourceCamera CaptureSource = "camera"
	// CaptureSourceWebcam is a live webcam frame (non-mobile devices).
	CaptureSourceWebcam CaptureSource = "webcam"
)

// Valid reports whether the capture source is a known variant.
func (s CaptureSource) Valid() bool {
	switch s {
	case CaptureSourceUpload, CaptureSourceCamera, CaptureSourceWebcam:
		return true
	}
	return false
}

// CropRegion describes the selected square crop in source-image pixels.
type CropRegion struct {
	X      int
	Y      int
	Width  int
	Height int
	// PixelRatio scales the rasterised output so the crop is emitted at
	// the device's native density rather than CSS pixels.
	PixelRatio float64
}

// PhotoHandle tracks the single stored photo owned by a wizard session.
// The storage object is deleted exactly once when the photo is replaced
// or the session is reset.
type PhotoHandle struct {
	ObjectPath  string
	Source      CaptureSource
	ContentType string
	Width       int
	Height      int
	SizeBytes   int64
	Crop        *CropRegion
	// CroppedPath is set once a crop has been rasterised and stored.
	CroppedPath string
	UploadedAt  time.Time
}

// WizardFields holds the user-entered field values of a session.
type WizardFields struct {
	CustomerName   string
	BestieName     string
	HairConcern    HairConcern
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	ContactAddress string
}

// WizardSession is the server-side state of one customization wizard run.
// Mutations are guarded by Revision: writers supply the revision they
// read, and a mismatch means the write was superseded and is refused.
type WizardSession struct {
	ID                string
	Step              WizardStep
	Revision          int64
	Fields            WizardFields
	Photo             *PhotoHandle
	ProcessedImageURL string
	CompositionPath   string
	FieldErrors       map[string]string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CustomerStatus describes the fulfilment state of a submitted order.
type CustomerStatus string

const (
	// CustomerStatusPending marks a freshly submitted order.
	CustomerStatusPending CustomerStatus = "pending"
	// CustomerStatusDelivered marks an order fulfilled by the campaign team.
	CustomerStatusDelivered CustomerStatus = "delivered"
)

// Valid reports whether the status is a known variant.
func (s CustomerStatus) Valid() bool {
	return s == CustomerStatusPending || s == CustomerStatusDelivered
}

// Customer is the persisted record of a submitted bottle order.
type Customer struct {
	ID          string
	FirstName   string
	LastName    string
	BestieName  string
	Email       string
	PhoneNumber string
	Address     string
	HairConcern HairConcern
	ImageURL    string
	Status      CustomerStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CustomerStatusCounts aggregates customers per status for the dashboard.
type CustomerStatusCounts struct {
	Total     int
	Pending   int
	Delivered int
}

// AdminUser is a back-office account allowed to manage submissions.
type AdminUser struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Superuser    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
