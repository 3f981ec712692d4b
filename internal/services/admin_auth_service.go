package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/platform/auth"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

const generatedPasswordLength = 16

var (
	// ErrInvalidCredentials indicates a failed login attempt. The caller is
	// never told whether the account exists.
	ErrInvalidCredentials = errors.New("admin auth: invalid credentials")
	// ErrAdminNotFound indicates the requested account does not exist.
	ErrAdminNotFound = errors.New("admin auth: account not found")
	// ErrAdminUnavailable indicates the persistence layer is temporarily unavailable.
	ErrAdminUnavailable = errors.New("admin auth: repository unavailable")
)

// AdminAuthServiceDeps wires dependencies for the admin auth service.
type AdminAuthServiceDeps struct {
	Users  repositories.AdminUserRepository
	Tokens *auth.TokenManager
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type adminAuthService struct {
	users  repositories.AdminUserRepository
	tokens *auth.TokenManager
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewAdminAuthService constructs an AdminAuthService backed by the provided dependencies.
func NewAdminAuthService(deps AdminAuthServiceDeps) (AdminAuthService, error) {
	if deps.Users == nil {
		return nil, errors.New("admin auth service: user repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("admin auth service: token manager is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &adminAuthService{
		users:  deps.Users,
		tokens: deps.Tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *adminAuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, s.classifyLoginError(ctx, email, err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		s.logger(ctx, "admin.login_rejected", map[string]any{"email": email})
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		Subject:   user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Superuser: user.Superuser,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("admin auth: issue token: %w", err)
	}

	s.logger(ctx, "admin.login", map[string]any{"admin_id": user.ID})
	user.PasswordHash = ""
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *adminAuthService) GeneratePassword(ctx context.Context, email string) (GeneratedPassword, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return GeneratedPassword{}, ErrAdminNotFound
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return GeneratedPassword{}, classifyAdminError(err)
	}

	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return GeneratedPassword{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return GeneratedPassword{}, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.clock()); err != nil {
		return GeneratedPassword{}, classifyAdminError(err)
	}

	s.logger(ctx, "admin.password_generated", map[string]any{"admin_id": user.ID})
	return GeneratedPassword{Email: user.Email, Password: password}, nil
}

// classifyLoginError hides account existence behind ErrInvalidCredentials.
func (s *adminAuthService) classifyLoginError(ctx context.Context, email string, err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			s.logger(ctx, "admin.login_rejected", map[string]any{"email": email})
			return ErrInvalidCredentials
		}
		if repoErr.IsUnavailable() {
			return fmt.Errorf("%w: %v", ErrAdminUnavailable, err)
		}
	}
	return err
}

func classifyAdminError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrAdminNotFound
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrAdminUnavailable, err)
		}
	}
	return err
}

// BootstrapAdmin ensures the configured bootstrap account exists, creating it
// with a generated password logged exactly once at startup.
func BootstrapAdmin(ctx context.Context, users repositories.AdminUserRepository, email string, idGen func() string, clock func() time.Time, logger func(context.Context, string, map[string]any)) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if classified := classifyAdminError(err); !errors.Is(classified, ErrAdminNotFound) {
		return classified
	}

	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := clock().UTC()
	user := domain.AdminUser{
		ID:           idGen(),
		Email:        email,
		FullName:     "Campaign Admin",
		PasswordHash: hash,
		Superuser:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Insert(ctx, user); err != nil {
		return classifyAdminError(err)
	}

	logger(ctx, "admin.bootstrapped", map[string]any{
		"email": email,
		// Surfaced once so the operator can log in; rotate immediately.
		"password": password,
	})
	return nil
}
