package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

// ErrOrderUnavailable indicates the order could not be persisted because the
// backing store is temporarily unavailable.
var ErrOrderUnavailable = errors.New("order: repository unavailable")

// OrderServiceDeps wires dependencies for the order service implementation.
type OrderServiceDeps struct {
	Customers   repositories.CustomerRepository
	Publisher   OrderEventPublisher
	IDGenerator func() string
	Clock       func() time.Time
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	customers repositories.CustomerRepository
	publisher OrderEventPublisher
	newID     func() string
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
	sanitizer *bluemonday.Policy
}

// NewOrderService constructs an OrderService backed by the provided dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Customers == nil {
		return nil, errors.New("order service: customer repository is required")
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "cus_" + ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		customers: deps.Customers,
		publisher: deps.Publisher,
		newID:     idGen,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

func (s *orderService) Submit(ctx context.Context, cmd SubmitOrderCommand) (SubmitOrderResult, error) {
	cmd = s.sanitizeCommand(cmd)

	fieldErrs := validateOrderFields(cmd)
	if len(fieldErrs) > 0 {
		return SubmitOrderResult{}, &ValidationError{Fields: fieldErrs}
	}

	if errs, err := s.checkDuplicates(ctx, cmd); err != nil {
		return SubmitOrderResult{}, err
	} else if len(errs) > 0 {
		return SubmitOrderResult{}, &ValidationError{Fields: errs}
	}

	now := s.clock()
	customer := domain.Customer{
		ID:          s.newID(),
		FirstName:   cmd.FirstName,
		LastName:    cmd.LastName,
		BestieName:  cmd.BestieName,
		Email:       cmd.Email,
		PhoneNumber: cmd.PhoneNumber,
		Address:     cmd.Address,
		HairConcern: cmd.HairConcern,
		ImageURL:    cmd.ImageURL,
		Status:      domain.CustomerStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.customers.Insert(ctx, customer); err != nil {
		return SubmitOrderResult{}, s.classifyInsertError(err)
	}

	s.publishCreated(ctx, customer)
	s.logger(ctx, "order.submitted", map[string]any{
		"customer_id":  customer.ID,
		"hair_concern": string(customer.HairConcern),
	})
	return SubmitOrderResult{Customer: customer}, nil
}

func (s *orderService) sanitizeCommand(cmd SubmitOrderCommand) SubmitOrderCommand {
	clean := func(value string, limit int) string {
		return truncateRunes(strings.TrimSpace(s.sanitizer.Sanitize(value)), limit)
	}
	cmd.FirstName = clean(cmd.FirstName, maxNameLength)
	cmd.LastName = clean(cmd.LastName, maxNameLength)
	cmd.BestieName = clean(cmd.BestieName, maxNameLength)
	cmd.Address = clean(cmd.Address, maxAddressLength)
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	cmd.PhoneNumber = strings.TrimSpace(cmd.PhoneNumber)
	cmd.ImageURL = strings.TrimSpace(cmd.ImageURL)
	return cmd
}

func validateOrderFields(cmd SubmitOrderCommand) FieldErrors {
	errs := FieldErrors{}
	if cmd.FirstName == "" {
		errs["first_name"] = "Please enter your first name"
	}
	if cmd.LastName == "" {
		errs["last_name"] = "Please enter your last name"
	}
	if cmd.BestieName == "" {
		errs["bestie_name"] = "Please enter your bestie's name"
	}
	if !emailPattern.MatchString(strings.TrimSpace(cmd.Email)) {
		errs["email"] = "Please enter a valid email address"
	}
	if !phonePattern.MatchString(strings.TrimSpace(cmd.PhoneNumber)) {
		errs["phone_number"] = "Please enter a valid phone number (+92XXXXXXXXXX)"
	}
	if cmd.Address == "" {
		errs["address"] = "Please enter your delivery address"
	}
	if !cmd.HairConcern.Valid() {
		errs["hair_concern"] = "Please select a hair concern"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// checkDuplicates refuses resubmissions under an email or phone number that
// already has an order on record.
func (s *orderService) checkDuplicates(ctx context.Context, cmd SubmitOrderCommand) (FieldErrors, error) {
	errs := FieldErrors{}

	if _, err := s.customers.FindByEmail(ctx, cmd.Email); err == nil {
		errs["email"] = "An order with this email address already exists"
	} else if lookupErr := classifyLookupError(err); lookupErr != nil {
		return nil, lookupErr
	}

	if _, err := s.customers.FindByPhone(ctx, cmd.PhoneNumber); err == nil {
		errs["phone_number"] = "An order with this phone number already exists"
	} else if lookupErr := classifyLookupError(err); lookupErr != nil {
		return nil, lookupErr
	}

	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

// classifyLookupError keeps not-found results silent and surfaces everything else.
func classifyLookupError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return nil
		}
		if repoErr.IsUnavailable() {
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

func (s *orderService) classifyInsertError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsConflict() {
			return &ValidationError{Fields: FieldErrors{
				"email": "An order with this email address already exists",
			}}
		}
		if repoErr.IsUnavailable() {
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

// publishCreated announces the accepted order. Publish failures are logged
// and swallowed: the order is already durable and the dashboard reads from
// Firestore, not the topic.
func (s *orderService) publishCreated(ctx context.Context, customer domain.Customer) {
	if s.publisher == nil {
		return
	}
	messageID, err := s.publisher.PublishOrderCreated(ctx, OrderCreatedMessage{
		CustomerID:  customer.ID,
		FirstName:   customer.FirstName,
		BestieName:  customer.BestieName,
		HairConcern: string(customer.HairConcern),
		Email:       customer.Email,
		SubmittedAt: customer.CreatedAt,
	})
	if err != nil {
		s.logger(ctx, "order.publish_failed", map[string]any{
			"customer_id": customer.ID,
			"error":       err.Error(),
		})
		return
	}
	s.logger(ctx, "order.published", map[string]any{
		"customer_id": customer.ID,
		"message_id":  messageID,
	})
}
