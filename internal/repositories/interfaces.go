package repositories

import (
	"context"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// WizardSessionRepository persists wizard session documents.
type WizardSessionRepository interface {
	Insert(ctx context.Context, session domain.WizardSession) error
	// Replace overwrites the session only when the stored revision matches
	// expectedRevision. A mismatch yields a conflict-classified error.
	Replace(ctx context.Context, session domain.WizardSession, expectedRevision int64) error
	FindByID(ctx context.Context, sessionID string) (domain.WizardSession, error)
	Delete(ctx context.Context, sessionID string) error
	// DeleteExpired removes sessions not updated since the cutoff, up to limit.
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// CustomerListFilter narrows the admin customer listing.
type CustomerListFilter struct {
	// Search matches against first name, last name, email, and phone number.
	Search string
	Status domain.CustomerStatus
	Pager  domain.Pagination
}

// CustomerRepository persists submitted orders.
type CustomerRepository interface {
	Insert(ctx context.Context, customer domain.Customer) error
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (domain.Customer, error)
	FindByPhone(ctx context.Context, phone string) (domain.Customer, error)
	List(ctx context.Context, filter CustomerListFilter) (domain.CursorPage[domain.Customer], error)
	UpdateStatus(ctx context.Context, customerID string, status domain.CustomerStatus, updatedAt time.Time) (domain.Customer, error)
	CountByStatus(ctx context.Context) (domain.CustomerStatusCounts, error)
}

// AdminUserRepository persists back-office accounts.
type AdminUserRepository interface {
	Insert(ctx context.Context, user domain.AdminUser) error
	FindByEmail(ctx context.Context, email string) (domain.AdminUser, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
}
