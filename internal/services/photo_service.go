package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/imaging"
	"github.com/NomanAhmed1999/vatika/internal/platform/storage"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

const (
	defaultMaxPhotoBytes = int64(10 << 20)

	photoEventUploaded  = "photo.uploaded"
	photoEventReplaced  = "photo.replaced"
	photoEventCropped   = "photo.cropped"
	photoEventProcessed = "photo.processed"
)

var (
	// ErrPhotoInvalidInput indicates the caller provided an invalid argument.
	ErrPhotoInvalidInput = errors.New("photo: invalid input")
	// ErrPhotoTooLarge indicates the uploaded payload exceeds the size limit.
	ErrPhotoTooLarge = errors.New("photo: payload too large")
	// ErrPhotoMissing indicates the session has no stored photo for the operation.
	ErrPhotoMissing = errors.New("photo: no photo uploaded")
	// ErrCropMissing indicates no cropped variant exists yet.
	ErrCropMissing = errors.New("photo: no cropped photo")
)

// PhotoServiceDeps wires dependencies for the photo service implementation.
type PhotoServiceDeps struct {
	Sessions      repositories.WizardSessionRepository
	Store         storage.ObjectStore
	UploadsBucket string
	Processing    ProcessingClient
	MaxPhotoBytes int64
	IDGenerator   func() string
	Clock         func() time.Time
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type photoService struct {
	sessions      repositories.WizardSessionRepository
	store         storage.ObjectStore
	uploadsBucket string
	processing    ProcessingClient
	maxBytes      int64
	newID         func() string
	clock         func() time.Time
	logger        func(context.Context, string, map[string]any)
}

// NewPhotoService constructs a PhotoService backed by the provided dependencies.
func NewPhotoService(deps PhotoServiceDeps) (PhotoService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("photo service: session repository is required")
	}
	if deps.Store == nil {
		return nil, errors.New("photo service: object store is required")
	}
	if strings.TrimSpace(deps.UploadsBucket) == "" {
		return nil, errors.New("photo service: uploads bucket is required")
	}

	maxBytes := deps.MaxPhotoBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxPhotoBytes
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

	return &photoService{
		sessions:      deps.Sessions,
		store:         deps.Store,
		uploadsBucket: strings.TrimSpace(deps.UploadsBucket),
		processing:    deps.Processing,
		maxBytes:      maxBytes,
		newID:         idGen,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *photoService) Upload(ctx context.Context, cmd UploadPhotoCommand) (domain.WizardSession, error) {
	session, err := s.loadSession(ctx, cmd.SessionID, cmd.Revision)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if !cmd.Source.Valid() {
		return domain.WizardSession{}, fmt.Errorf("%w: unknown capture source %q", ErrPhotoInvalidInput, cmd.Source)
	}
	if int64(len(cmd.Data)) > s.maxBytes {
		return domain.WizardSession{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPhotoTooLarge, len(cmd.Data), s.maxBytes)
	}

	img, format, err := imaging.Decode(cmd.Data)
	if err != nil {
		return domain.WizardSession{}, fmt.Errorf("%w: %v", ErrPhotoInvalidInput, err)
	}

	uploadID := s.newID()
	objectPath, err := storage.BuildPhotoPath(storage.PathParams{
		SessionID: session.ID,
		UploadID:  uploadID,
		FileName:  "original." + extensionForFormat(format),
	})
	if err != nil {
		return domain.WizardSession{}, fmt.Errorf("%w: %v", ErrPhotoInvalidInput, err)
	}

	contentType := imaging.ContentTypeForFormat(format)
	info, err := s.store.Write(ctx, s.uploadsBucket, objectPath, contentType, bytes.NewReader(cmd.Data))
	if err != nil {
		return domain.WizardSession{}, err
	}

	replaced := session.Photo
	bounds := img.Bounds()
	session.Photo = &domain.PhotoHandle{
		ObjectPath:  objectPath,
		Source:      cmd.Source,
		ContentType: contentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		SizeBytes:   info.Size,
		UploadedAt:  s.clock(),
	}
	// A fresh photo invalidates everything derived from the previous one.
	session.ProcessedImageURL = ""
	session.CompositionPath = ""
	session.FieldErrors = nil

	updated, err := s.persist(ctx, session, cmd.Revision)
	if err != nil {
		// The freshly written object is orphaned when the write loses the
		// revision race; release it so nothing leaks.
		_ = s.store.Delete(ctx, s.uploadsBucket, objectPath)
		return domain.WizardSession{}, err
	}

	event := photoEventUploaded
	if replaced != nil {
		event = photoEventReplaced
		s.deleteHandleObjects(ctx, replaced)
	}
	s.logger(ctx, event, map[string]any{
		"session_id": session.ID,
		"source":     string(cmd.Source),
		"bytes":      info.Size,
	})
	return updated, nil
}

func (s *photoService) Crop(ctx context.Context, cmd CropPhotoCommand) (domain.WizardSession, error) {
	session, err := s.loadSession(ctx, cmd.SessionID, cmd.Revision)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if session.Photo == nil || session.Photo.ObjectPath == "" {
		return domain.WizardSession{}, ErrPhotoMissing
	}

	data, err := s.readObject(ctx, session.Photo.ObjectPath)
	if err != nil {
		return domain.WizardSession{}, err
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return domain.WizardSession{}, fmt.Errorf("%w: stored photo is not decodable: %v", ErrPhotoInvalidInput, err)
	}

	cropped, err := imaging.CropCircle(img, cmd.Region)
	if err != nil {
		if errors.Is(err, imaging.ErrInvalidCrop) || errors.Is(err, imaging.ErrCropOutOfBounds) {
			return domain.WizardSession{}, fmt.Errorf("%w: %v", ErrPhotoInvalidInput, err)
		}
		return domain.WizardSession{}, err
	}

	encoded, err := imaging.EncodeJPEG(imaging.FlattenOnWhite(cropped))
	if err != nil {
		return domain.WizardSession{}, err
	}

	croppedPath, err := storage.BuildCroppedPhotoPath(storage.PathParams{
		SessionID: session.ID,
		UploadID:  s.newID(),
		FileName:  "crop.jpg",
	})
	if err != nil {
		return domain.WizardSession{}, fmt.Errorf("%w: %v", ErrPhotoInvalidInput, err)
	}
	if _, err := s.store.Write(ctx, s.uploadsBucket, croppedPath, "image/jpeg", bytes.NewReader(encoded)); err != nil {
		return domain.WizardSession{}, err
	}

	previousCrop := session.Photo.CroppedPath
	region := cmd.Region
	session.Photo.Crop = &region
	session.Photo.CroppedPath = croppedPath
	session.ProcessedImageURL = ""
	session.CompositionPath = ""
	session.FieldErrors = nil

	updated, err := s.persist(ctx, session, cmd.Revision)
	if err != nil {
		_ = s.store.Delete(ctx, s.uploadsBucket, croppedPath)
		return domain.WizardSession{}, err
	}

	if previousCrop != "" && previousCrop != croppedPath {
		_ = s.store.Delete(ctx, s.uploadsBucket, previousCrop)
	}
	s.logger(ctx, photoEventCropped, map[string]any{
		"session_id": session.ID,
		"width":      cmd.Region.Width,
		"height":     cmd.Region.Height,
	})
	return updated, nil
}

func (s *photoService) Process(ctx context.Context, cmd ProcessPhotoCommand) (domain.WizardSession, error) {
	if s.processing == nil {
		return domain.WizardSession{}, errors.New("photo service: processing client not configured")
	}
	session, err := s.loadSession(ctx, cmd.SessionID, cmd.Revision)
	if err != nil {
		return domain.WizardSession{}, err
	}
	if session.Photo == nil {
		return domain.WizardSession{}, ErrPhotoMissing
	}
	if session.Photo.CroppedPath == "" {
		return domain.WizardSession{}, ErrCropMissing
	}

	data, err := s.readObject(ctx, session.Photo.CroppedPath)
	if err != nil {
		return domain.WizardSession{}, err
	}

	result, err := s.processing.ProcessImage(ctx, ProcessImageRequest{
		SessionID:   session.ID,
		ContentType: "image/jpeg",
		FileName:    "crop.jpg",
		Data:        data,
		Concern:     session.Fields.HairConcern,
	})
	if err != nil {
		return domain.WizardSession{}, err
	}

	session.ProcessedImageURL = result.ImageURL
	session.FieldErrors = nil

	updated, err := s.persist(ctx, session, cmd.Revision)
	if err != nil {
		return domain.WizardSession{}, err
	}
	s.logger(ctx, photoEventProcessed, map[string]any{"session_id": session.ID})
	return updated, nil
}

func (s *photoService) loadSession(ctx context.Context, sessionID string, revision int64) (domain.WizardSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.WizardSession{}, fmt.Errorf("%w: session id is required", ErrPhotoInvalidInput)
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return domain.WizardSession{}, classifySessionError(err)
	}
	if session.Revision != revision {
		return domain.WizardSession{}, ErrRevisionMismatch
	}
	return session, nil
}

func (s *photoService) persist(ctx context.Context, session domain.WizardSession, expectedRevision int64) (domain.WizardSession, error) {
	session.Revision = expectedRevision + 1
	session.UpdatedAt = s.clock()
	if err := s.sessions.Replace(ctx, session, expectedRevision); err != nil {
		return domain.WizardSession{}, classifySessionError(err)
	}
	return session, nil
}

func (s *photoService) readObject(ctx context.Context, objectPath string) ([]byte, error) {
	reader, _, err := s.store.Read(ctx, s.uploadsBucket, objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrPhotoMissing
		}
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *photoService) deleteHandleObjects(ctx context.Context, handle *domain.PhotoHandle) {
	if handle == nil {
		return
	}
	if handle.ObjectPath != "" {
		_ = s.store.Delete(ctx, s.uploadsBucket, handle.ObjectPath)
	}
	if handle.CroppedPath != "" {
		_ = s.store.Delete(ctx, s.uploadsBucket, handle.CroppedPath)
	}
}

func classifySessionError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrSessionNotFound
		case repoErr.IsConflict():
			return ErrRevisionMismatch
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrWizardUnavailable, err)
		}
	}
	return err
}

func extensionForFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpeg":
		return "jpg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	default:
		return "bin"
	}
}
