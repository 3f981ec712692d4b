package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	pfirestore "github.com/NomanAhmed1999/vatika/internal/platform/firestore"
	"github.com/NomanAhmed1999/vatika/internal/platform/pagination"
	"github.com/NomanAhmed1999/vatika/internal/platform/textutil"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

const customersCollection = "customers"

// CustomerRepository persists submitted orders.
type CustomerRepository struct {
	base *pfirestore.BaseRepository[customerDocument]
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository: firestore provider is required")
	}
	return &CustomerRepository{
		base: pfirestore.NewBaseRepository[customerDocument](provider, customersCollection),
	}, nil
}

// Insert stores a new customer document. The ID must be unique.
func (r *CustomerRepository) Insert(ctx context.Context, customer domain.Customer) error {
	if r == nil || r.base == nil {
		return errors.New("customer repository not initialised")
	}
	customerID := strings.TrimSpace(customer.ID)
	if customerID == "" {
		return errors.New("customer repository: customer id is required")
	}
	return r.base.Create(ctx, customerID, encodeCustomer(customer))
}

// FindByID fetches a single customer.
func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Customer{}, errors.New("customer repository: customer id is required")
	}
	doc, err := r.base.Get(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return decodeCustomer(customerID, doc.Data), nil
}

// FindByEmail returns the customer registered under the given email address.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	return r.findByField(ctx, "email_normalized", textutil.NormalizeSearchTerm(email))
}

// FindByPhone returns the customer registered under the given phone number.
func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	return r.findByField(ctx, "phone_number", strings.TrimSpace(phone))
}

func (r *CustomerRepository) findByField(ctx context.Context, field, value string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	if value == "" {
		return domain.Customer{}, errors.New("customer repository: lookup value is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where(field, "==", value).Limit(1)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	if len(docs) == 0 {
		return domain.Customer{}, notFoundError("customers.find_by_" + field)
	}
	return decodeCustomer(docs[0].ID, docs[0].Data), nil
}

// List returns customers ordered by most recent submission, honouring the
// status filter and search term.
func (r *CustomerRepository) List(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[domain.Customer], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Customer]{}, errors.New("customer repository not initialised")
	}

	limit := filter.Pager.PageSize
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	cursor, err := pagination.DecodeToken(filter.Pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Status.Valid() {
			q = q.Where("status", "==", string(filter.Status))
		}
		if term := textutil.NormalizeSearchTerm(filter.Search); term != "" {
			q = q.Where("search_tokens", "array-contains", term)
		}
		q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(cursor.StartAfter) > 0 {
			q = q.StartAfter(cursor.StartAfter...)
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, err
	}

	page := domain.CursorPage[domain.Customer]{}
	for i, doc := range docs {
		if i >= limit {
			break
		}
		page.Items = append(page.Items, decodeCustomer(doc.ID, doc.Data))
	}

	if len(docs) > limit {
		last := docs[limit-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.CreatedAt, last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.Customer]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

// UpdateStatus transitions the customer to the provided status and returns the updated record.
func (r *CustomerRepository) UpdateStatus(ctx context.Context, customerID string, status domain.CustomerStatus, updatedAt time.Time) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Customer{}, errors.New("customer repository: customer id is required")
	}

	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updated_at", Value: updatedAt.UTC()},
	}
	if err := r.base.Update(ctx, customerID, updates); err != nil {
		return domain.Customer{}, err
	}
	return r.FindByID(ctx, customerID)
}

// CountByStatus aggregates customers per status for the dashboard header.
func (r *CustomerRepository) CountByStatus(ctx context.Context) (domain.CustomerStatusCounts, error) {
	if r == nil || r.base == nil {
		return domain.CustomerStatusCounts{}, errors.New("customer repository not initialised")
	}

	coll, err := r.base.CollectionRef(ctx)
	if err != nil {
		return domain.CustomerStatusCounts{}, err
	}

	counts := domain.CustomerStatusCounts{}
	iter := coll.Select("status").Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CustomerStatusCounts{}, pfirestore.WrapError("customers.count_by_status", err)
		}
		counts.Total++
		value, _ := snap.DataAt("status")
		switch domain.CustomerStatus(asString(value)) {
		case domain.CustomerStatusPending:
			counts.Pending++
		case domain.CustomerStatusDelivered:
			counts.Delivered++
		}
	}
	return counts, nil
}

func asString(value any) string {
	s, _ := value.(string)
	return s
}

type customerDocument struct {
	FirstName       string    `firestore:"first_name"`
	LastName        string    `firestore:"last_name"`
	BestieName      string    `firestore:"bestie_name"`
	Email           string    `firestore:"email"`
	EmailNormalized string    `firestore:"email_normalized"`
	PhoneNumber     string    `firestore:"phone_number"`
	Address         string    `firestore:"address"`
	HairConcern     string    `firestore:"hair_concern"`
	ImageURL        string    `firestore:"image_url"`
	Status          string    `firestore:"status"`
	SearchTokens    []string  `firestore:"search_tokens"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

func encodeCustomer(customer domain.Customer) customerDocument {
	return customerDocument{
		FirstName:       customer.FirstName,
		LastName:        customer.LastName,
		BestieName:      customer.BestieName,
		Email:           customer.Email,
		EmailNormalized: textutil.NormalizeSearchTerm(customer.Email),
		PhoneNumber:     customer.PhoneNumber,
		Address:         customer.Address,
		HairConcern:     string(customer.HairConcern),
		ImageURL:        customer.ImageURL,
		Status:          string(customer.Status),
		SearchTokens: textutil.SearchTokens(
			customer.FirstName,
			customer.LastName,
			customer.BestieName,
			customer.Email,
			customer.PhoneNumber,
		),
		CreatedAt: customer.CreatedAt.UTC(),
		UpdatedAt: customer.UpdatedAt.UTC(),
	}
}

func decodeCustomer(id string, doc customerDocument) domain.Customer {
	return domain.Customer{
		ID:          id,
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		BestieName:  doc.BestieName,
		Email:       doc.Email,
		PhoneNumber: doc.PhoneNumber,
		Address:     doc.Address,
		HairConcern: domain.HairConcern(doc.HairConcern),
		ImageURL:    doc.ImageURL,
		Status:      domain.CustomerStatus(doc.Status),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
