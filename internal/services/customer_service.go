package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

const exportPageSize = 200

var (
	// ErrCustomerNotFound indicates the requested customer does not exist.
	ErrCustomerNotFound = errors.New("customer: not found")
	// ErrCustomerInvalidStatus indicates an unknown status value was supplied.
	ErrCustomerInvalidStatus = errors.New("customer: invalid status")
	// ErrCustomerUnavailable indicates the persistence layer is temporarily unavailable.
	ErrCustomerUnavailable = errors.New("customer: repository unavailable")
)

// CustomerServiceDeps wires dependencies for the customer service implementation.
type CustomerServiceDeps struct {
	Customers repositories.CustomerRepository
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type customerService struct {
	customers repositories.CustomerRepository
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewCustomerService constructs a CustomerService backed by the provided dependencies.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer service: customer repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &customerService{
		customers: deps.Customers,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *customerService) List(ctx context.Context, query CustomerListQuery) (CustomerListResult, error) {
	filter, err := buildListFilter(query)
	if err != nil {
		return CustomerListResult{}, err
	}

	page, err := s.customers.List(ctx, filter)
	if err != nil {
		return CustomerListResult{}, classifyCustomerError(err)
	}
	counts, err := s.customers.CountByStatus(ctx)
	if err != nil {
		return CustomerListResult{}, classifyCustomerError(err)
	}

	return CustomerListResult{
		Customers:     page.Items,
		NextPageToken: page.NextPageToken,
		Counts:        counts,
	}, nil
}

func (s *customerService) UpdateStatus(ctx context.Context, customerID string, status domain.CustomerStatus) (domain.Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerNotFound)
	}
	if !status.Valid() {
		return domain.Customer{}, fmt.Errorf("%w: %q", ErrCustomerInvalidStatus, status)
	}

	customer, err := s.customers.UpdateStatus(ctx, customerID, status, s.clock())
	if err != nil {
		return domain.Customer{}, classifyCustomerError(err)
	}

	s.logger(ctx, "customer.status_updated", map[string]any{
		"customer_id": customer.ID,
		"status":      string(status),
	})
	return customer, nil
}

// ExportCSV walks the full filtered listing page by page and renders it as CSV.
func (s *customerService) ExportCSV(ctx context.Context, query CustomerListQuery) ([]byte, error) {
	filter, err := buildListFilter(query)
	if err != nil {
		return nil, err
	}
	filter.Pager = domain.Pagination{PageSize: exportPageSize}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	header := []string{
		"id", "first_name", "last_name", "bestie_name", "email",
		"phone_number", "address", "hair_concern", "status", "created_at",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for {
		page, err := s.customers.List(ctx, filter)
		if err != nil {
			return nil, classifyCustomerError(err)
		}
		for _, customer := range page.Items {
			record := []string{
				customer.ID,
				customer.FirstName,
				customer.LastName,
				customer.BestieName,
				customer.Email,
				customer.PhoneNumber,
				customer.Address,
				string(customer.HairConcern),
				string(customer.Status),
				customer.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := writer.Write(record); err != nil {
				return nil, err
			}
		}
		if page.NextPageToken == "" {
			break
		}
		filter.Pager.PageToken = page.NextPageToken
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	s.logger(ctx, "customer.exported", map[string]any{
		"search": filter.Search,
		"status": string(filter.Status),
	})
	return buf.Bytes(), nil
}

func (s *customerService) Counts(ctx context.Context) (domain.CustomerStatusCounts, error) {
	counts, err := s.customers.CountByStatus(ctx)
	if err != nil {
		return domain.CustomerStatusCounts{}, classifyCustomerError(err)
	}
	return counts, nil
}

func buildListFilter(query CustomerListQuery) (repositories.CustomerListFilter, error) {
	filter := repositories.CustomerListFilter{
		Search: strings.TrimSpace(query.Search),
		Pager:  query.Pager,
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		parsed := domain.CustomerStatus(status)
		if !parsed.Valid() {
			return repositories.CustomerListFilter{}, fmt.Errorf("%w: %q", ErrCustomerInvalidStatus, status)
		}
		filter.Status = parsed
	}
	return filter, nil
}

func classifyCustomerError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCustomerNotFound
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCustomerUnavailable, err)
		}
	}
	return err
}
