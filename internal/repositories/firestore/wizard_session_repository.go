package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	pfirestore "github.com/NomanAhmed1999/vatika/internal/platform/firestore"
)

const wizardSessionsCollection = "wizard_sessions"

// WizardSessionRepository persists wizard session documents.
type WizardSessionRepository struct {
	base *pfirestore.BaseRepository[wizardSessionDocument]
}

// NewWizardSessionRepository constructs a Firestore-backed wizard session repository.
func NewWizardSessionRepository(provider *pfirestore.Provider) (*WizardSessionRepository, error) {
	if provider == nil {
		return nil, errors.New("wizard session repository: firestore provider is required")
	}
	return &WizardSessionRepository{
		base: pfirestore.NewBaseRepository[wizardSessionDocument](provider, wizardSessionsCollection),
	}, nil
}

// Insert stores a new session document. The ID must be unique.
func (r *WizardSessionRepository) Insert(ctx context.Context, session domain.WizardSession) error {
	if r == nil || r.base == nil {
		return errors.New("wizard session repository not initialised")
	}
	sessionID := strings.TrimSpace(session.ID)
	if sessionID == "" {
		return errors.New("wizard session repository: session id is required")
	}
	return r.base.Create(ctx, sessionID, encodeWizardSession(session))
}

// Replace overwrites the session only when the stored revision matches expectedRevision.
func (r *WizardSessionRepository) Replace(ctx context.Context, session domain.WizardSession, expectedRevision int64) error {
	if r == nil || r.base == nil {
		return errors.New("wizard session repository not initialised")
	}
	sessionID := strings.TrimSpace(session.ID)
	if sessionID == "" {
		return errors.New("wizard session repository: session id is required")
	}

	docRef, err := r.base.DocumentRef(ctx, sessionID)
	if err != nil {
		return err
	}

	doc := encodeWizardSession(session)
	return r.base.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		var stored wizardSessionDocument
		if err := snap.DataTo(&stored); err != nil {
			return err
		}
		if stored.Revision != expectedRevision {
			return status.Errorf(codes.FailedPrecondition,
				"wizard session revision mismatch: have %d want %d", stored.Revision, expectedRevision)
		}
		return tx.Set(docRef, doc)
	})
}

// FindByID fetches a single session.
func (r *WizardSessionRepository) FindByID(ctx context.Context, sessionID string) (domain.WizardSession, error) {
	if r == nil || r.base == nil {
		return domain.WizardSession{}, errors.New("wizard session repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.WizardSession{}, errors.New("wizard session repository: session id is required")
	}
	doc, err := r.base.Get(ctx, sessionID)
	if err != nil {
		return domain.WizardSession{}, err
	}
	return decodeWizardSession(sessionID, doc.Data), nil
}

// Delete removes the session document.
func (r *WizardSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if r == nil || r.base == nil {
		return errors.New("wizard session repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("wizard session repository: session id is required")
	}
	return r.base.Delete(ctx, sessionID)
}

// DeleteExpired removes sessions whose last update predates the cutoff.
func (r *WizardSessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("wizard session repository not initialised")
	}
	if limit <= 0 {
		limit = 100
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("updated_at", "<=", cutoff.UTC()).Limit(limit)
	})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, doc := range docs {
		if err := r.base.Delete(ctx, doc.ID); err != nil {
			return removed, fmt.Errorf("wizard session repository: delete expired %s: %w", doc.ID, err)
		}
		removed++
	}
	return removed, nil
}

type wizardSessionDocument struct {
	Step              int              `firestore:"step"`
	Revision          int64            `firestore:"revision"`
	CustomerName      string           `firestore:"customer_name"`
	BestieName        string           `firestore:"bestie_name"`
	HairConcern       string           `firestore:"hair_concern"`
	ContactName       string           `firestore:"contact_name"`
	ContactEmail      string           `firestore:"contact_email"`
	ContactPhone      string           `firestore:"contact_phone"`
	ContactAddress    string           `firestore:"contact_address"`
	Photo             *photoDocument   `firestore:"photo"`
	ProcessedImageURL string           `firestore:"processed_image_url"`
	CompositionPath   string           `firestore:"composition_path"`
	FieldErrors       map[string]string `firestore:"field_errors"`
	CreatedAt         time.Time        `firestore:"created_at"`
	UpdatedAt         time.Time        `firestore:"updated_at"`
}

type photoDocument struct {
	ObjectPath  string        `firestore:"object_path"`
	Source      string        `firestore:"source"`
	ContentType string        `firestore:"content_type"`
	Width       int           `firestore:"width"`
	Height      int           `firestore:"height"`
	SizeBytes   int64         `firestore:"size_bytes"`
	Crop        *cropDocument `firestore:"crop"`
	CroppedPath string        `firestore:"cropped_path"`
	UploadedAt  time.Time     `firestore:"uploaded_at"`
}

type cropDocument struct {
	X          int     `firestore:"x"`
	Y          int     `firestore:"y"`
	Width      int     `firestore:"width"`
	Height     int     `firestore:"height"`
	PixelRatio float64 `firestore:"pixel_ratio"`
}

func encodeWizardSession(session domain.WizardSession) wizardSessionDocument {
	doc := wizardSessionDocument{
		Step:              int(session.Step),
		Revision:          session.Revision,
		CustomerName:      session.Fields.CustomerName,
		BestieName:        session.Fields.BestieName,
		HairConcern:       string(session.Fields.HairConcern),
		ContactName:       session.Fields.ContactName,
		ContactEmail:      session.Fields.ContactEmail,
		ContactPhone:      session.Fields.ContactPhone,
		ContactAddress:    session.Fields.ContactAddress,
		ProcessedImageURL: session.ProcessedImageURL,
		CompositionPath:   session.CompositionPath,
		FieldErrors:       session.FieldErrors,
		CreatedAt:         session.CreatedAt.UTC(),
		UpdatedAt:         session.UpdatedAt.UTC(),
	}
	if session.Photo != nil {
		photo := &photoDocument{
			ObjectPath:  session.Photo.ObjectPath,
			Source:      string(session.Photo.Source),
			ContentType: session.Photo.ContentType,
			Width:       session.Photo.Width,
			Height:      session.Photo.Height,
			SizeBytes:   session.Photo.SizeBytes,
			CroppedPath: session.Photo.CroppedPath,
			UploadedAt:  session.Photo.UploadedAt.UTC(),
		}
		if session.Photo.Crop != nil {
			photo.Crop = &cropDocument{
				X:          session.Photo.Crop.X,
				Y:          session.Photo.Crop.Y,
				Width:      session.Photo.Crop.Width,
				Height:     session.Photo.Crop.Height,
				PixelRatio: session.Photo.Crop.PixelRatio,
			}
		}
		doc.Photo = photo
	}
	return doc
}

func decodeWizardSession(id string, doc wizardSessionDocument) domain.WizardSession {
	session := domain.WizardSession{
		ID:       id,
		Step:     domain.WizardStep(doc.Step),
		Revision: doc.Revision,
		Fields: domain.WizardFields{
			CustomerName:   doc.CustomerName,
			BestieName:     doc.BestieName,
			HairConcern:    domain.HairConcern(doc.HairConcern),
			ContactName:    doc.ContactName,
			ContactEmail:   doc.ContactEmail,
			ContactPhone:   doc.ContactPhone,
			ContactAddress: doc.ContactAddress,
		},
		ProcessedImageURL: doc.ProcessedImageURL,
		CompositionPath:   doc.CompositionPath,
		FieldErrors:       doc.FieldErrors,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	if doc.Photo != nil {
		photo := &domain.PhotoHandle{
			ObjectPath:  doc.Photo.ObjectPath,
			Source:      domain.CaptureSource(doc.Photo.Source),
			ContentType: doc.Photo.ContentType,
			Width:       doc.Photo.Width,
			Height:      doc.Photo.Height,
			SizeBytes:   doc.Photo.SizeBytes,
			CroppedPath: doc.Photo.CroppedPath,
			UploadedAt:  doc.Photo.UploadedAt,
		}
		if doc.Photo.Crop != nil {
			photo.Crop = &domain.CropRegion{
				X:          doc.Photo.Crop.X,
				Y:          doc.Photo.Crop.Y,
				Width:      doc.Photo.Crop.Width,
				Height:     doc.Photo.Crop.Height,
				PixelRatio: doc.Photo.Crop.PixelRatio,
			}
		}
		session.Photo = photo
	}
	return session
}
