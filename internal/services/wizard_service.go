package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/platform/storage"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

const (
	maxNameLength    = 80
	maxAddressLength = 500

	wizardEventCreated   = "wizard.session.created"
	wizardEventAdvanced  = "wizard.session.advanced"
	wizardEventBlocked   = "wizard.session.blocked"
	wizardEventRetreated = "wizard.session.retreated"
	wizardEventReset     = "wizard.session.reset"
	wizardEventSubmitted = "wizard.session.submitted"
)

var (
	// ErrSessionNotFound indicates the wizard session does not exist.
	ErrSessionNotFound = errors.New("wizard: session not found")
	// ErrRevisionMismatch indicates the caller's revision is stale and the write was superseded.
	ErrRevisionMismatch = errors.New("wizard: session revision mismatch")
	// ErrWizardInvalidInput indicates the caller provided an invalid argument.
	ErrWizardInvalidInput = errors.New("wizard: invalid input")
	// ErrWizardUnavailable indicates the persistence layer is temporarily unavailable.
	ErrWizardUnavailable = errors.New("wizard: repository unavailable")

	phonePattern = regexp.MustCompile(`^\+92[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// WizardServiceDeps wires dependencies for the wizard service implementation.
type WizardServiceDeps struct {
	Sessions      repositories.WizardSessionRepository
	Orders        OrderService
	Store         storage.ObjectStore
	UploadsBucket string
	RendersBucket string
	IDGenerator   func() string
	Clock         func() time.Time
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type wizardService struct {
	sessions      repositories.WizardSessionRepository
	orders        OrderService
	store         storage.ObjectStore
	uploadsBucket string
	rendersBucket string
	newID         func() string
	clock         func() time.Time
	logger        func(context.Context, string, map[string]any)
	sanitizer     *bluemonday.Policy
}

// NewWizardService constructs a WizardService backed by the provided dependencies.
func NewWizardService(deps WizardServiceDeps) (WizardService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("wizard service: session repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("wizard service: order service is required")
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &wizardService{
		sessions:      deps.Sessions,
		orders:        deps.Orders,
		store:         deps.Store,
		uploadsBucket: strings.TrimSpace(deps.UploadsBucket),
		rendersBucket: strings.TrimSpace(deps.RendersBucket),
		newID:         idGen,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

func (s *wizardService) CreateSession(ctx context.Context) (domain.WizardSession, error) {
	now := s.clock()
	session := domain.WizardSession{
		ID:        "ws_" + s.newID(),
		Step:      domain.StepIntro,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		return domain.WizardSession{}, classifySessionError(err)
	}
	s.logger(ctx, wizardEventCreated, map[string]any{"session_id": session.ID})
	return session, nil
}

func (s *wizardService) GetSession(ctx context.Context, sessionID string) (domain.WizardSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.WizardSession{}, fmt.Errorf("%w: session id is required", ErrWizardInvalidInput)
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return domain.WizardSession{}, classifySessionError(err)
	}
	return session, nil
}

func (s *wizardService) UpdateFields(ctx context.Context, cmd UpdateFieldsCommand) (domain.WizardSession, error) {
	session, err := s.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if session.Revision != cmd.Revision {
		return domain.WizardSession{}, ErrRevisionMismatch
	}

	apply := func(target *string, value *string, limit int) {
		if value == nil {
			return
		}
		*target = s.sanitizeText(*value, limit)
	}

	apply(&session.Fields.CustomerName, cmd.CustomerName, maxNameLength)
	apply(&session.Fields.BestieName, cmd.BestieName, maxNameLength)
	apply(&session.Fields.ContactName, cmd.ContactName, maxNameLength)
	apply(&session.Fields.ContactAddress, cmd.ContactAddress, maxAddressLength)
	if cmd.ContactEmail != nil {
		session.Fields.ContactEmail = strings.TrimSpace(*cmd.ContactEmail)
	}
	if cmd.ContactPhone != nil {
		session.Fields.ContactPhone = strings.TrimSpace(*cmd.ContactPhone)
	}
	if cmd.HairConcern != nil {
		concern := domain.HairConcern(strings.TrimSpace(*cmd.HairConcern))
		if *cmd.HairConcern != "" && !concern.Valid() {
			return domain.WizardSession{}, fmt.Errorf("%w: unknown hair concern %q", ErrWizardInvalidInput, *cmd.HairConcern)
		}
		session.Fields.HairConcern = concern
	}

	session.FieldErrors = nil
	return s.persist(ctx, session, cmd.Revision)
}

func (s *wizardService) Advance(ctx context.Context, cmd StepCommand) (AdvanceResult, error) {
	session, err := s.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return AdvanceResult{}, err
	}
	if session.Revision != cmd.Revision {
		return AdvanceResult{}, ErrRevisionMismatch
	}

	fieldErrors := s.stepFieldErrors(session)
	if len(fieldErrors) > 0 {
		session.FieldErrors = fieldErrors
		updated, err := s.persist(ctx, session, cmd.Revision)
		if err != nil {
			return AdvanceResult{}, err
		}
		s.logger(ctx, wizardEventBlocked, map[string]any{
			"session_id": session.ID,
			"step":       int(session.Step),
		})
		return AdvanceResult{Session: updated}, nil
	}

	if session.Step == domain.StepContact {
		return s.submitAndReset(ctx, session, cmd.Revision)
	}

	session.Step++
	session.FieldErrors = nil
	updated, err := s.persist(ctx, session, cmd.Revision)
	if err != nil {
		return AdvanceResult{}, err
	}
	s.logger(ctx, wizardEventAdvanced, map[string]any{
		"session_id": session.ID,
		"step":       int(updated.Step),
	})
	return AdvanceResult{Session: updated, Moved: true}, nil
}

func (s *wizardService) Retreat(ctx context.Context, cmd StepCommand) (domain.WizardSession, error) {
	session, err := s.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if session.Revision != cmd.Revision {
		return domain.WizardSession{}, ErrRevisionMismatch
	}

	if session.Step > domain.StepIntro {
		session.Step--
	}
	session.FieldErrors = nil
	updated, err := s.persist(ctx, session, cmd.Revision)
	if err != nil {
		return domain.WizardSession{}, err
	}
	s.logger(ctx, wizardEventRetreated, map[string]any{
		"session_id": session.ID,
		"step":       int(updated.Step),
	})
	return updated, nil
}

func (s *wizardService) Reset(ctx context.Context, cmd StepCommand) (domain.WizardSession, error) {
	session, err := s.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if session.Revision != cmd.Revision {
		return domain.WizardSession{}, ErrRevisionMismatch
	}

	s.releaseObjects(ctx, session)

	cleared := domain.WizardSession{
		ID:        session.ID,
		Step:      domain.StepIntro,
		Revision:  session.Revision,
		CreatedAt: session.CreatedAt,
	}
	updated, err := s.persist(ctx, cleared, cmd.Revision)
	if err != nil {
		return domain.WizardSession{}, err
	}
	s.logger(ctx, wizardEventReset, map[string]any{"session_id": session.ID})
	return updated, nil
}

func (s *wizardService) submitAndReset(ctx context.Context, session domain.WizardSession, revision int64) (AdvanceResult, error) {
	first, last := splitContactName(session.Fields.ContactName)
	result, err := s.orders.Submit(ctx, SubmitOrderCommand{
		FirstName:   first,
		LastName:    last,
		BestieName:  session.Fields.BestieName,
		Email:       session.Fields.ContactEmail,
		PhoneNumber: session.Fields.ContactPhone,
		Address:     session.Fields.ContactAddress,
		HairConcern: session.Fields.HairConcern,
		ImageURL:    session.ProcessedImageURL,
	})
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			session.FieldErrors = validationErr.Fields
			updated, persistErr := s.persist(ctx, session, revision)
			if persistErr != nil {
				return AdvanceResult{}, persistErr
			}
			return AdvanceResult{Session: updated}, nil
		}
		return AdvanceResult{}, err
	}

	s.releaseObjects(ctx, session)

	cleared := domain.WizardSession{
		ID:        session.ID,
		Step:      domain.StepIntro,
		Revision:  session.Revision,
		CreatedAt: session.CreatedAt,
	}
	updated, err := s.persist(ctx, cleared, revision)
	if err != nil {
		return AdvanceResult{}, err
	}
	s.logger(ctx, wizardEventSubmitted, map[string]any{
		"session_id":  session.ID,
		"customer_id": result.Customer.ID,
	})
	return AdvanceResult{
		Session:        updated,
		Moved:          true,
		OrderSubmitted: true,
		CustomerID:     result.Customer.ID,
	}, nil
}

// stepFieldErrors evaluates only the fields the current step inspects, so a
// blocked advance never reports errors for fields belonging to other steps.
func (s *wizardService) stepFieldErrors(session domain.WizardSession) map[string]string {
	fieldErrors := make(map[string]string)
	switch session.Step {
	case domain.StepIntro:
		// The landing step never gates.
	case domain.StepNames:
		if strings.TrimSpace(session.Fields.CustomerName) == "" {
			fieldErrors["customer_name"] = "Please enter your name"
		}
		if strings.TrimSpace(session.Fields.BestieName) == "" {
			fieldErrors["bestie_name"] = "Please enter your bestie's name"
		}
	case domain.StepConcern:
		if !session.Fields.HairConcern.Valid() {
			fieldErrors["hair_concern"] = "Please select a hair concern"
		}
	case domain.StepPhoto:
		if session.Photo == nil {
			fieldErrors["photo"] = "Please add a photo of you and your bestie"
		}
	case domain.StepPreview:
		if strings.TrimSpace(session.ProcessedImageURL) == "" {
			fieldErrors["processed_image"] = "Your photo is still being prepared"
		}
	case domain.StepContact:
		if strings.TrimSpace(session.Fields.ContactName) == "" {
			fieldErrors["contact_name"] = "Please enter your full name"
		}
		if !emailPattern.MatchString(strings.TrimSpace(session.Fields.ContactEmail)) {
			fieldErrors["email"] = "Please enter a valid email address"
		}
		if !phonePattern.MatchString(strings.TrimSpace(session.Fields.ContactPhone)) {
			fieldErrors["phone_number"] = "Please enter a valid phone number (+92XXXXXXXXXX)"
		}
		if strings.TrimSpace(session.Fields.ContactAddress) == "" {
			fieldErrors["address"] = "Please enter your delivery address"
		}
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

func (s *wizardService) persist(ctx context.Context, session domain.WizardSession, expectedRevision int64) (domain.WizardSession, error) {
	session.Revision = expectedRevision + 1
	session.UpdatedAt = s.clock()
	if err := s.sessions.Replace(ctx, session, expectedRevision); err != nil {
		return domain.WizardSession{}, classifySessionError(err)
	}
	return session, nil
}

// releaseObjects deletes the storage objects owned by the session. Delete is
// tolerant of already-removed objects, so a replaced photo is released once.
func (s *wizardService) releaseObjects(ctx context.Context, session domain.WizardSession) {
	if s.store == nil {
		return
	}
	if session.Photo != nil {
		if session.Photo.ObjectPath != "" {
			_ = s.store.Delete(ctx, s.uploadsBucket, session.Photo.ObjectPath)
		}
		if session.Photo.CroppedPath != "" {
			_ = s.store.Delete(ctx, s.uploadsBucket, session.Photo.CroppedPath)
		}
	}
	if session.CompositionPath != "" {
		_ = s.store.Delete(ctx, s.rendersBucket, session.CompositionPath)
	}
}

func (s *wizardService) sanitizeText(value string, limit int) string {
	return truncateRunes(strings.TrimSpace(s.sanitizer.Sanitize(value)), limit)
}

// truncateRunes caps the value at limit runes. Names and addresses end up in
// rendered artwork and CSV exports, so a cut must never split a multibyte rune.
func truncateRunes(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func splitContactName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
