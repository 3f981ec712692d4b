package services

import (
	"context"
	"errors"
	"testing"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

func validOrderCommand() SubmitOrderCommand {
	return SubmitOrderCommand{
		FirstName:   "Aisha",
		LastName:    "Khan",
		BestieName:  "Mona",
		Email:       "Aisha@Example.com",
		PhoneNumber: "+923001234567",
		Address:     "House 12, Street 4, Karachi",
		HairConcern: domain.HairConcernDullWeak,
		ImageURL:    "https://cdn.example.com/processed.jpg",
	}
}

func newOrderForTest(t *testing.T, repo *fakeCustomerRepo, publisher OrderEventPublisher) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Customers:   repo,
		Publisher:   publisher,
		IDGenerator: func() string { return "cus_TEST" },
		Clock:       testClock,
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestSubmitStoresPendingCustomer(t *testing.T) {
	repo := newFakeCustomerRepo()
	publisher := &fakePublisher{}
	svc := newOrderForTest(t, repo, publisher)

	result, err := svc.Submit(context.Background(), validOrderCommand())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	customer := result.Customer
	if customer.ID != "cus_TEST" {
		t.Fatalf("unexpected customer id %q", customer.ID)
	}
	if customer.Status != domain.CustomerStatusPending {
		t.Fatalf("expected pending status, got %q", customer.Status)
	}
	if customer.Email != "aisha@example.com" {
		t.Fatalf("email not lowercased: %q", customer.Email)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.inserted))
	}
	if len(publisher.messages) != 1 {
		t.Fatalf("expected one published message, got %d", len(publisher.messages))
	}
	msg := publisher.messages[0]
	if msg.CustomerID != "cus_TEST" || msg.HairConcern != string(domain.HairConcernDullWeak) {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestSubmitValidatesAllFields(t *testing.T) {
	svc := newOrderForTest(t, newFakeCustomerRepo(), nil)

	_, err := svc.Submit(context.Background(), SubmitOrderCommand{
		Email:       "not-an-email",
		PhoneNumber: "03001234567",
		HairConcern: domain.HairConcern("oily"),
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	want := map[string]string{
		"first_name":   "Please enter your first name",
		"last_name":    "Please enter your last name",
		"bestie_name":  "Please enter your bestie's name",
		"email":        "Please enter a valid email address",
		"phone_number": "Please enter a valid phone number (+92XXXXXXXXXX)",
		"address":      "Please enter your delivery address",
		"hair_concern": "Please select a hair concern",
	}
	if len(validationErr.Fields) != len(want) {
		t.Fatalf("got %d field errors, want %d: %v", len(validationErr.Fields), len(want), validationErr.Fields)
	}
	for field, message := range want {
		if validationErr.Fields[field] != message {
			t.Fatalf("field %q = %q, want %q", field, validationErr.Fields[field], message)
		}
	}
}

func TestSubmitStripsMarkupBeforeValidation(t *testing.T) {
	repo := newFakeCustomerRepo()
	svc := newOrderForTest(t, repo, nil)

	cmd := validOrderCommand()
	cmd.FirstName = "<b></b>"

	_, err := svc.Submit(context.Background(), cmd)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := validationErr.Fields["first_name"]; !ok {
		t.Fatalf("expected first_name error after sanitisation, got %v", validationErr.Fields)
	}
}

func TestSubmitRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.customers["cus_existing"] = domain.Customer{
		ID:    "cus_existing",
		Email: "aisha@example.com",
	}
	svc := newOrderForTest(t, repo, nil)

	_, err := svc.Submit(context.Background(), validOrderCommand())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if validationErr.Fields["email"] != "An order with this email address already exists" {
		t.Fatalf("unexpected email error %q", validationErr.Fields["email"])
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("duplicate submission must not insert")
	}
}

func TestSubmitRejectsDuplicatePhone(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.customers["cus_existing"] = domain.Customer{
		ID:          "cus_existing",
		PhoneNumber: "+923001234567",
	}
	svc := newOrderForTest(t, repo, nil)

	_, err := svc.Submit(context.Background(), validOrderCommand())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if validationErr.Fields["phone_number"] != "An order with this phone number already exists" {
		t.Fatalf("unexpected phone error %q", validationErr.Fields["phone_number"])
	}
}

func TestSubmitSurvivesPublishFailure(t *testing.T) {
	repo := newFakeCustomerRepo()
	publisher := &fakePublisher{err: errors.New("topic gone")}
	svc := newOrderForTest(t, repo, publisher)

	result, err := svc.Submit(context.Background(), validOrderCommand())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Customer.ID == "" {
		t.Fatalf("expected a stored customer despite the publish failure")
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.inserted))
	}
}
