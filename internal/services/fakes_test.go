package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/platform/storage"
	"github.com/NomanAhmed1999/vatika/internal/repositories"
)

type fakeRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *fakeRepoError) Error() string       { return e.msg }
func (e *fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e *fakeRepoError) IsConflict() bool    { return e.conflict }
func (e *fakeRepoError) IsUnavailable() bool { return e.unavailable }

var _ repositories.RepositoryError = (*fakeRepoError)(nil)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.WizardSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]domain.WizardSession)}
}

func (r *fakeSessionRepo) Insert(_ context.Context, session domain.WizardSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return &fakeRepoError{msg: "already exists", conflict: true}
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) Replace(_ context.Context, session domain.WizardSession, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return &fakeRepoError{msg: "not found", notFound: true}
	}
	if stored.Revision != expectedRevision {
		return &fakeRepoError{msg: "revision conflict", conflict: true}
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, sessionID string) (domain.WizardSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.WizardSession{}, &fakeRepoError{msg: "not found", notFound: true}
	}
	return session, nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, cutoff time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, session := range r.sessions {
		if removed >= limit {
			break
		}
		if session.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeSessionRepo) put(session domain.WizardSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes map[string]int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects: make(map[string][]byte),
		deletes: make(map[string]int),
	}
}

func objectKey(bucket, object string) string { return bucket + "/" + object }

func readerOf(data []byte) io.Reader { return bytes.NewReader(data) }

func (s *fakeObjectStore) Write(_ context.Context, bucket, object, contentType string, data io.Reader) (storage.ObjectInfo, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, object)] = payload
	return storage.ObjectInfo{
		Bucket:      bucket,
		Name:        object,
		ContentType: contentType,
		Size:        int64(len(payload)),
	}, nil
}

func (s *fakeObjectStore) Read(_ context.Context, bucket, object string) (io.ReadCloser, storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.objects[objectKey(bucket, object)]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(payload)), storage.ObjectInfo{
		Bucket: bucket,
		Name:   object,
		Size:   int64(len(payload)),
	}, nil
}

func (s *fakeObjectStore) Delete(_ context.Context, bucket, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := objectKey(bucket, object)
	s.deletes[key]++
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStore) SignedDownloadURL(_ context.Context, bucket, object string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://signed.example.com/" + objectKey(bucket, object), time.Now().Add(expiresIn), nil
}

func (s *fakeObjectStore) deleteCount(bucket, object string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes[objectKey(bucket, object)]
}

func (s *fakeObjectStore) has(bucket, object string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[objectKey(bucket, object)]
	return ok
}

type fakeOrderService struct {
	submitted []SubmitOrderCommand
	result    SubmitOrderResult
	err       error
}

func (s *fakeOrderService) Submit(_ context.Context, cmd SubmitOrderCommand) (SubmitOrderResult, error) {
	s.submitted = append(s.submitted, cmd)
	if s.err != nil {
		return SubmitOrderResult{}, s.err
	}
	return s.result, nil
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
	inserted  []domain.Customer
	listPages []domain.CursorPage[domain.Customer]
	listCalls int
	listErr   error
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]domain.Customer)}
}

func (r *fakeCustomerRepo) Insert(_ context.Context, customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[customer.ID] = customer
	r.inserted = append(r.inserted, customer)
	return nil
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, customerID string) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[customerID]
	if !ok {
		return domain.Customer{}, &fakeRepoError{msg: "not found", notFound: true}
	}
	return customer, nil
}

func (r *fakeCustomerRepo) FindByEmail(_ context.Context, email string) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, customer := range r.customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return domain.Customer{}, &fakeRepoError{msg: "not found", notFound: true}
}

func (r *fakeCustomerRepo) FindByPhone(_ context.Context, phone string) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, customer := range r.customers {
		if customer.PhoneNumber == phone {
			return customer, nil
		}
	}
	return domain.Customer{}, &fakeRepoError{msg: "not found", notFound: true}
}

func (r *fakeCustomerRepo) List(_ context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[domain.Customer], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return domain.CursorPage[domain.Customer]{}, r.listErr
	}
	if r.listCalls < len(r.listPages) {
		page := r.listPages[r.listCalls]
		r.listCalls++
		return page, nil
	}
	return domain.CursorPage[domain.Customer]{}, nil
}

func (r *fakeCustomerRepo) UpdateStatus(_ context.Context, customerID string, status domain.CustomerStatus, updatedAt time.Time) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[customerID]
	if !ok {
		return domain.Customer{}, &fakeRepoError{msg: "not found", notFound: true}
	}
	customer.Status = status
	customer.UpdatedAt = updatedAt
	r.customers[customerID] = customer
	return customer, nil
}

func (r *fakeCustomerRepo) CountByStatus(_ context.Context) (domain.CustomerStatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := domain.CustomerStatusCounts{}
	for _, customer := range r.customers {
		counts.Total++
		switch customer.Status {
		case domain.CustomerStatusPending:
			counts.Pending++
		case domain.CustomerStatusDelivered:
			counts.Delivered++
		}
	}
	return counts, nil
}

type fakeAdminRepo struct {
	mu    sync.Mutex
	users map[string]domain.AdminUser
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{users: make(map[string]domain.AdminUser)}
}

func (r *fakeAdminRepo) Insert(_ context.Context, user domain.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeAdminRepo) FindByEmail(_ context.Context, email string) (domain.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.AdminUser{}, &fakeRepoError{msg: "not found", notFound: true}
}

func (r *fakeAdminRepo) UpdatePassword(_ context.Context, userID, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return &fakeRepoError{msg: "not found", notFound: true}
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = updatedAt
	r.users[userID] = user
	return nil
}

type fakeProcessingClient struct {
	requests []ProcessImageRequest
	result   ProcessImageResult
	err      error
}

func (c *fakeProcessingClient) ProcessImage(_ context.Context, req ProcessImageRequest) (ProcessImageResult, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return ProcessImageResult{}, c.err
	}
	return c.result, nil
}

type fakePublisher struct {
	messages []OrderCreatedMessage
	err      error
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, message OrderCreatedMessage) (string, error) {
	p.messages = append(p.messages, message)
	if p.err != nil {
		return "", p.err
	}
	return "msg-1", nil
}
