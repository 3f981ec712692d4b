package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	pfirestore "github.com/NomanAhmed1999/vatika/internal/platform/firestore"
	"github.com/NomanAhmed1999/vatika/internal/platform/textutil"
)

const adminUsersCollection = "admin_users"

// AdminUserRepository persists back-office accounts.
type AdminUserRepository struct {
	base *pfirestore.BaseRepository[adminUserDocument]
}

// NewAdminUserRepository constructs a Firestore-backed admin user repository.
func NewAdminUserRepository(provider *pfirestore.Provider) (*AdminUserRepository, error) {
	if provider == nil {
		return nil, errors.New("admin user repository: firestore provider is required")
	}
	return &AdminUserRepository{
		base: pfirestore.NewBaseRepository[adminUserDocument](provider, adminUsersCollection),
	}, nil
}

// Insert stores a new admin account. The ID must be unique.
func (r *AdminUserRepository) Insert(ctx context.Context, user domain.AdminUser) error {
	if r == nil || r.base == nil {
		return errors.New("admin user repository not initialised")
	}
	userID := strings.TrimSpace(user.ID)
	if userID == "" {
		return errors.New("admin user repository: user id is required")
	}
	return r.base.Create(ctx, userID, encodeAdminUser(user))
}

// FindByEmail fetches the account registered under the given email address.
func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (domain.AdminUser, error) {
	if r == nil || r.base == nil {
		return domain.AdminUser{}, errors.New("admin user repository not initialised")
	}
	normalized := textutil.NormalizeSearchTerm(email)
	if normalized == "" {
		return domain.AdminUser{}, errors.New("admin user repository: email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email_normalized", "==", normalized).Limit(1)
	})
	if err != nil {
		return domain.AdminUser{}, err
	}
	if len(docs) == 0 {
		return domain.AdminUser{}, notFoundError("admin_users.find_by_email")
	}
	return decodeAdminUser(docs[0].ID, docs[0].Data), nil
}

// UpdatePassword replaces the stored password hash.
func (r *AdminUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("admin user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("admin user repository: user id is required")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return errors.New("admin user repository: password hash is required")
	}

	updates := []firestore.Update{
		{Path: "password_hash", Value: passwordHash},
		{Path: "updated_at", Value: updatedAt.UTC()},
	}
	return r.base.Update(ctx, userID, updates)
}

type adminUserDocument struct {
	Email           string    `firestore:"email"`
	EmailNormalized string    `firestore:"email_normalized"`
	FullName        string    `firestore:"full_name"`
	PasswordHash    string    `firestore:"password_hash"`
	Superuser       bool      `firestore:"superuser"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

func encodeAdminUser(user domain.AdminUser) adminUserDocument {
	return adminUserDocument{
		Email:           user.Email,
		EmailNormalized: textutil.NormalizeSearchTerm(user.Email),
		FullName:        user.FullName,
		PasswordHash:    user.PasswordHash,
		Superuser:       user.Superuser,
		CreatedAt:       user.CreatedAt.UTC(),
		UpdatedAt:       user.UpdatedAt.UTC(),
	}
}

func decodeAdminUser(id string, doc adminUserDocument) domain.AdminUser {
	return domain.AdminUser{
		ID:           id,
		Email:        doc.Email,
		FullName:     doc.FullName,
		PasswordHash: doc.PasswordHash,
		Superuser:    doc.Superuser,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}
