package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/imaging"
	"github.com/NomanAhmed1999/vatika/internal/platform/storage"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

const (
	defaultShareText      = "Check out my Bestie Bottle!"
	defaultDownloadURLTTL = 15 * time.Minute
)

var (
	// ErrCompositionNotReady indicates the session is missing the inputs the
	// artwork needs (names, concern, cropped photo).
	ErrCompositionNotReady = errors.New("composition: session not ready to render")
	// ErrCompositionMissing indicates share targets were requested before a render.
	ErrCompositionMissing = errors.New("composition: no rendered artwork")
)

// CompositionServiceDeps wires dependencies for the composition service.
type CompositionServiceDeps struct {
	Sessions      repositories.WizardSessionRepository
	Store         storage.ObjectStore
	UploadsBucket string
	RendersBucket string
	PublicBaseURL string
	ShareText     string
	DownloadTTL   time.Duration
	IDGenerator   func() string
	Clock         func() time.Time
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type compositionService struct {
	sessions      repositories.WizardSessionRepository
	store         storage.ObjectStore
	uploadsBucket string
	rendersBucket string
	publicBaseURL string
	shareText     string
	downloadTTL   time.Duration
	newID         func() string
	clock         func() time.Time
	logger        func(context.Context, string, map[string]any)
}

// NewCompositionService constructs a CompositionService backed by the provided dependencies.
func NewCompositionService(deps CompositionServiceDeps) (CompositionService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("composition service: session repository is required")
	}
	if deps.Store == nil {
		return nil, errors.New("composition service: object store is required")
	}
	if strings.TrimSpace(deps.UploadsBucket) == "" {
		return nil, errors.New("composition service: uploads bucket is required")
	}
	if strings.TrimSpace(deps.RendersBucket) == "" {
		return nil, errors.New("composition service: renders bucket is required")
	}

	shareText := strings.TrimSpace(deps.ShareText)
	if shareText == "" {
		shareText = defaultShareText
	}
	downloadTTL := deps.DownloadTTL
	if downloadTTL <= 0 {
		downloadTTL = defaultDownloadURLTTL
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

	return &compositionService{
		sessions:      deps.Sessions,
		store:         deps.Store,
		uploadsBucket: strings.TrimSpace(deps.UploadsBucket),
		rendersBucket: strings.TrimSpace(deps.RendersBucket),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(deps.PublicBaseURL), "/"),
		shareText:     shareText,
		downloadTTL:   downloadTTL,
		newID:         idGen,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *compositionService) Render(ctx context.Context, cmd RenderCompositionCommand) (CompositionResult, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return CompositionResult{}, fmt.Errorf("%w: session id is required", ErrWizardInvalidInput)
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return CompositionResult{}, classifySessionError(err)
	}
	if session.Revision != cmd.Revision {
		return CompositionResult{}, ErrRevisionMismatch
	}
	if err := compositionReady(session); err != nil {
		return CompositionResult{}, err
	}

	reader, _, err := s.store.Read(ctx, s.uploadsBucket, session.Photo.CroppedPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return CompositionResult{}, ErrCompositionNotReady
		}
		return CompositionResult{}, err
	}
	photoBytes := &bytes.Buffer{}
	_, copyErr := photoBytes.ReadFrom(reader)
	reader.Close()
	if copyErr != nil {
		return CompositionResult{}, copyErr
	}
	photo, _, err := imaging.Decode(photoBytes.Bytes())
	if err != nil {
		return CompositionResult{}, fmt.Errorf("composition: stored crop is not decodable: %w", err)
	}

	rendered, err := imaging.Compose(imaging.CompositionInput{
		UserName:   session.Fields.CustomerName,
		BestieName: session.Fields.BestieName,
		Concern:    session.Fields.HairConcern,
		Photo:      photo,
	})
	if err != nil {
		return CompositionResult{}, err
	}
	encoded, err := imaging.EncodePNG(rendered)
	if err != nil {
		return CompositionResult{}, err
	}

	objectPath, err := storage.BuildCompositionPath(storage.PathParams{
		SessionID: session.ID,
		RenderID:  s.newID(),
		FileName:  "bottle.png",
	})
	if err != nil {
		return CompositionResult{}, err
	}
	if _, err := s.store.Write(ctx, s.rendersBucket, objectPath, "image/png", bytes.NewReader(encoded)); err != nil {
		return CompositionResult{}, err
	}

	previous := session.CompositionPath
	session.CompositionPath = objectPath
	session.Revision = cmd.Revision + 1
	session.UpdatedAt = s.clock()
	if err := s.sessions.Replace(ctx, session, cmd.Revision); err != nil {
		_ = s.store.Delete(ctx, s.rendersBucket, objectPath)
		return CompositionResult{}, classifySessionError(err)
	}
	if previous != "" && previous != objectPath {
		_ = s.store.Delete(ctx, s.rendersBucket, previous)
	}

	downloadURL, expiresAt, err := s.store.SignedDownloadURL(ctx, s.rendersBucket, objectPath, s.downloadTTL)
	if err != nil {
		return CompositionResult{}, err
	}

	s.logger(ctx, "composition.rendered", map[string]any{
		"session_id": session.ID,
		"object":     objectPath,
	})
	return CompositionResult{
		Session:     session,
		ObjectPath:  objectPath,
		DownloadURL: downloadURL,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *compositionService) ShareTargets(ctx context.Context, sessionID string) ([]ShareTarget, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrWizardInvalidInput)
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, classifySessionError(err)
	}
	if session.CompositionPath == "" {
		return nil, ErrCompositionMissing
	}

	downloadURL, _, err := s.store.SignedDownloadURL(ctx, s.rendersBucket, session.CompositionPath, s.downloadTTL)
	if err != nil {
		return nil, err
	}

	shareURL := s.shareURL(session.ID)
	text := s.shareText
	if shareURL != "" {
		text = text + " " + shareURL
	}

	targets := []ShareTarget{
		{
			Name: "download",
			URL:  downloadURL,
		},
		{
			Name: "whatsapp",
			URL:  "https://wa.me/?text=" + url.QueryEscape(text),
		},
	}
	if shareURL != "" {
		targets = append(targets, ShareTarget{
			Name: "facebook",
			URL:  "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(shareURL),
		})
	}
	return targets, nil
}

// shareURL is the public landing page for a rendered session, empty when no
// public base URL is configured.
func (s *compositionService) shareURL(sessionID string) string {
	if s.publicBaseURL == "" {
		return ""
	}
	return s.publicBaseURL + "/share/" + url.PathEscape(sessionID)
}

func compositionReady(session domain.WizardSession) error {
	switch {
	case strings.TrimSpace(session.Fields.CustomerName) == "",
		strings.TrimSpace(session.Fields.BestieName) == "":
		return fmt.Errorf("%w: names are required", ErrCompositionNotReady)
	case !session.Fields.HairConcern.Valid():
		return fmt.Errorf("%w: hair concern is required", ErrCompositionNotReady)
	case session.Photo == nil || session.Photo.CroppedPath == "":
		return fmt.Errorf("%w: cropped photo is required", ErrCompositionNotReady)
	}
	return nil
}
