package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

var testClock = func() time.Time {
	return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
}

func newWizardForTest(t *testing.T, orders OrderService) (WizardService, *fakeSessionRepo, *fakeObjectStore) {
	t.Helper()
	if orders == nil {
		orders = &fakeOrderService{}
	}
	repo := newFakeSessionRepo()
	store := newFakeObjectStore()
	svc, err := NewWizardService(WizardServiceDeps{
		Sessions:      repo,
		Orders:        orders,
		Store:         store,
		UploadsBucket: "uploads",
		RendersBucket: "renders",
		IDGenerator:   func() string { return "TEST" },
		Clock:         testClock,
	})
	if err != nil {
		t.Fatalf("NewWizardService: %v", err)
	}
	return svc, repo, store
}

func TestCreateSessionStartsAtIntro(t *testing.T) {
	svc, _, _ := newWizardForTest(t, nil)

	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Step != domain.StepIntro {
		t.Fatalf("expected step %d, got %d", domain.StepIntro, session.Step)
	}
	if session.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", session.Revision)
	}
	if session.ID != "ws_TEST" {
		t.Fatalf("unexpected session id %q", session.ID)
	}
}

func TestAdvanceIntroIsNeverGated(t *testing.T) {
	svc, _, _ := newWizardForTest(t, nil)
	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	result, err := svc.Advance(context.Background(), StepCommand{SessionID: session.ID, Revision: session.Revision})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !result.Moved {
		t.Fatalf("expected intro advance to move")
	}
	if result.Session.Step != domain.StepNames {
		t.Fatalf("expected step %d, got %d", domain.StepNames, result.Session.Step)
	}
	if len(result.Session.FieldErrors) != 0 {
		t.Fatalf("unexpected field errors: %v", result.Session.FieldErrors)
	}
}

func TestAdvanceBlockedReportsOnlyInspectedFields(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{
		ID:       "ws_block",
		Step:     domain.StepNames,
		Revision: 3,
		Fields:   domain.WizardFields{CustomerName: "Aisha"},
	})

	result, err := svc.Advance(context.Background(), StepCommand{SessionID: "ws_block", Revision: 3})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result.Moved {
		t.Fatalf("expected blocked advance to stay on the same step")
	}
	if result.Session.Step != domain.StepNames {
		t.Fatalf("expected step %d, got %d", domain.StepNames, result.Session.Step)
	}
	if len(result.Session.FieldErrors) != 1 {
		t.Fatalf("expected exactly one field error, got %v", result.Session.FieldErrors)
	}
	if _, ok := result.Session.FieldErrors["bestie_name"]; !ok {
		t.Fatalf("expected bestie_name error, got %v", result.Session.FieldErrors)
	}
	if result.Session.Revision != 4 {
		t.Fatalf("blocked advance should still bump the revision, got %d", result.Session.Revision)
	}
}

func TestAdvanceContactRejectsLocalPhoneFormat(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{
		ID:       "ws_phone",
		Step:     domain.StepContact,
		Revision: 7,
		Fields: domain.WizardFields{
			CustomerName:   "Aisha",
			BestieName:     "Mona",
			HairConcern:    domain.HairConcernDryFrizzy,
			ContactName:    "Aisha Khan",
			ContactEmail:   "aisha@example.com",
			ContactPhone:   "03001234567",
			ContactAddress: "House 12, Karachi",
		},
		ProcessedImageURL: "https://cdn.example.com/x.jpg",
	})

	result, err := svc.Advance(context.Background(), StepCommand{SessionID: "ws_phone", Revision: 7})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result.OrderSubmitted {
		t.Fatalf("order must not be submitted with an invalid phone")
	}
	if msg, ok := result.Session.FieldErrors["phone_number"]; !ok || msg == "" {
		t.Fatalf("expected phone_number error, got %v", result.Session.FieldErrors)
	}
	if len(result.Session.FieldErrors) != 1 {
		t.Fatalf("expected only the phone error, got %v", result.Session.FieldErrors)
	}
}

func TestAdvanceTerminalSubmitsAndResets(t *testing.T) {
	orders := &fakeOrderService{result: SubmitOrderResult{Customer: domain.Customer{ID: "cus_1"}}}
	svc, repo, store := newWizardForTest(t, orders)

	_, _ = store.Write(context.Background(), "uploads", "photos/orig.jpg", "image/jpeg", strings.NewReader("orig"))
	_, _ = store.Write(context.Background(), "uploads", "photos/crop.jpg", "image/jpeg", strings.NewReader("crop"))

	repo.put(domain.WizardSession{
		ID:       "ws_done",
		Step:     domain.StepContact,
		Revision: 9,
		Fields: domain.WizardFields{
			CustomerName:   "Aisha",
			BestieName:     "Mona",
			HairConcern:    domain.HairConcernDryFrizzy,
			ContactName:    "Aisha Khan",
			ContactEmail:   "aisha@example.com",
			ContactPhone:   "+923001234567",
			ContactAddress: "House 12, Karachi",
		},
		Photo: &domain.PhotoHandle{
			ObjectPath:  "photos/orig.jpg",
			CroppedPath: "photos/crop.jpg",
		},
		ProcessedImageURL: "https://cdn.example.com/x.jpg",
		CreatedAt:         testClock().Add(-time.Hour),
	})

	result, err := svc.Advance(context.Background(), StepCommand{SessionID: "ws_done", Revision: 9})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !result.OrderSubmitted {
		t.Fatalf("expected terminal advance to submit the order")
	}
	if result.CustomerID != "cus_1" {
		t.Fatalf("unexpected customer id %q", result.CustomerID)
	}
	if len(orders.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(orders.submitted))
	}
	cmd := orders.submitted[0]
	if cmd.FirstName != "Aisha" || cmd.LastName != "Khan" {
		t.Fatalf("contact name split wrong: %q %q", cmd.FirstName, cmd.LastName)
	}
	if cmd.ImageURL != "https://cdn.example.com/x.jpg" {
		t.Fatalf("unexpected image url %q", cmd.ImageURL)
	}

	session := result.Session
	if session.Step != domain.StepIntro {
		t.Fatalf("expected reset to intro, got step %d", session.Step)
	}
	if session.Photo != nil || session.ProcessedImageURL != "" || len(session.FieldErrors) != 0 {
		t.Fatalf("expected cleared session, got %+v", session)
	}
	if !session.CreatedAt.Equal(testClock().Add(-time.Hour)) {
		t.Fatalf("reset must keep the creation time")
	}

	if store.deleteCount("uploads", "photos/orig.jpg") != 1 {
		t.Fatalf("original photo deleted %d times, want 1", store.deleteCount("uploads", "photos/orig.jpg"))
	}
	if store.deleteCount("uploads", "photos/crop.jpg") != 1 {
		t.Fatalf("cropped photo deleted %d times, want 1", store.deleteCount("uploads", "photos/crop.jpg"))
	}
}

func TestAdvanceTerminalMapsSubmissionFieldErrors(t *testing.T) {
	orders := &fakeOrderService{err: &ValidationError{Fields: FieldErrors{
		"email": "An order with this email address already exists",
	}}}
	svc, repo, _ := newWizardForTest(t, orders)

	repo.put(domain.WizardSession{
		ID:       "ws_dup",
		Step:     domain.StepContact,
		Revision: 2,
		Fields: domain.WizardFields{
			CustomerName:   "Aisha",
			BestieName:     "Mona",
			HairConcern:    domain.HairConcernHairFall,
			ContactName:    "Aisha Khan",
			ContactEmail:   "aisha@example.com",
			ContactPhone:   "+923001234567",
			ContactAddress: "House 12, Karachi",
		},
		ProcessedImageURL: "https://cdn.example.com/x.jpg",
	})

	result, err := svc.Advance(context.Background(), StepCommand{SessionID: "ws_dup", Revision: 2})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if result.OrderSubmitted || result.Moved {
		t.Fatalf("duplicate submission must not move the wizard")
	}
	if result.Session.Step != domain.StepContact {
		t.Fatalf("expected to remain on contact step, got %d", result.Session.Step)
	}
	if msg := result.Session.FieldErrors["email"]; msg == "" {
		t.Fatalf("expected email field error, got %v", result.Session.FieldErrors)
	}
}

func TestRetreatFloorsAtIntroAndClearsErrors(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{
		ID:          "ws_back",
		Step:        domain.StepNames,
		Revision:    5,
		FieldErrors: map[string]string{"bestie_name": "Please enter your bestie's name"},
	})

	session, err := svc.Retreat(context.Background(), StepCommand{SessionID: "ws_back", Revision: 5})
	if err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if session.Step != domain.StepIntro {
		t.Fatalf("expected step %d, got %d", domain.StepIntro, session.Step)
	}
	if len(session.FieldErrors) != 0 {
		t.Fatalf("retreat must clear field errors, got %v", session.FieldErrors)
	}

	again, err := svc.Retreat(context.Background(), StepCommand{SessionID: "ws_back", Revision: session.Revision})
	if err != nil {
		t.Fatalf("Retreat at intro: %v", err)
	}
	if again.Step != domain.StepIntro {
		t.Fatalf("retreat below intro must stay at intro, got %d", again.Step)
	}
}

func TestUpdateFieldsRevisionMismatch(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{ID: "ws_stale", Step: domain.StepNames, Revision: 4})

	name := "Aisha"
	_, err := svc.UpdateFields(context.Background(), UpdateFieldsCommand{
		SessionID:    "ws_stale",
		Revision:     3,
		CustomerName: &name,
	})
	if !errors.Is(err, ErrRevisionMismatch) {
		t.Fatalf("expected ErrRevisionMismatch, got %v", err)
	}
}

func TestUpdateFieldsRejectsUnknownConcern(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{ID: "ws_concern", Step: domain.StepConcern, Revision: 1})

	concern := "oily"
	_, err := svc.UpdateFields(context.Background(), UpdateFieldsCommand{
		SessionID:   "ws_concern",
		Revision:    1,
		HairConcern: &concern,
	})
	if !errors.Is(err, ErrWizardInvalidInput) {
		t.Fatalf("expected ErrWizardInvalidInput, got %v", err)
	}
}

func TestUpdateFieldsStripsMarkup(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{ID: "ws_clean", Step: domain.StepNames, Revision: 1})

	name := "<script>alert(1)</script>Aisha"
	session, err := svc.UpdateFields(context.Background(), UpdateFieldsCommand{
		SessionID:    "ws_clean",
		Revision:     1,
		CustomerName: &name,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if session.Fields.CustomerName != "Aisha" {
		t.Fatalf("expected sanitised name, got %q", session.Fields.CustomerName)
	}
}

func TestResetReleasesObjectsAndKeepsIdentity(t *testing.T) {
	svc, repo, store := newWizardForTest(t, nil)

	_, _ = store.Write(context.Background(), "uploads", "p/orig.jpg", "image/jpeg", strings.NewReader("orig"))
	_, _ = store.Write(context.Background(), "renders", "c/bottle.png", "image/png", strings.NewReader("png"))

	created := testClock().Add(-2 * time.Hour)
	repo.put(domain.WizardSession{
		ID:       "ws_reset",
		Step:     domain.StepPreview,
		Revision: 6,
		Photo: &domain.PhotoHandle{
			ObjectPath: "p/orig.jpg",
		},
		CompositionPath: "c/bottle.png",
		CreatedAt:       created,
	})

	session, err := svc.Reset(context.Background(), StepCommand{SessionID: "ws_reset", Revision: 6})
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if session.Step != domain.StepIntro || session.Photo != nil {
		t.Fatalf("expected cleared session, got %+v", session)
	}
	if session.ID != "ws_reset" || !session.CreatedAt.Equal(created) {
		t.Fatalf("reset must keep session identity")
	}
	if store.deleteCount("uploads", "p/orig.jpg") != 1 {
		t.Fatalf("photo object should be deleted exactly once")
	}
	if store.deleteCount("renders", "c/bottle.png") != 1 {
		t.Fatalf("composition object should be deleted exactly once")
	}
}

func TestRetreatThenAdvanceReturnsToSameStep(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{
		ID:       "ws_round",
		Step:     domain.StepNames,
		Revision: 2,
		Fields: domain.WizardFields{
			CustomerName: "Aisha",
			BestieName:   "Mona",
			HairConcern:  domain.HairConcernHairFall,
		},
	})

	forward, err := svc.Advance(context.Background(), StepCommand{SessionID: "ws_round", Revision: 2})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !forward.Moved || forward.Session.Step != domain.StepConcern {
		t.Fatalf("expected advance to concern step, got %+v", forward.Session)
	}

	back, err := svc.Retreat(context.Background(), StepCommand{SessionID: "ws_round", Revision: forward.Session.Revision})
	if err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if back.Step != domain.StepNames {
		t.Fatalf("expected retreat to names step, got %d", back.Step)
	}

	again, err := svc.Advance(context.Background(), StepCommand{SessionID: "ws_round", Revision: back.Revision})
	if err != nil {
		t.Fatalf("Advance after retreat: %v", err)
	}
	if !again.Moved || again.Session.Step != domain.StepConcern {
		t.Fatalf("expected to land back on concern step, got %+v", again.Session)
	}
	if len(again.Session.FieldErrors) != 0 {
		t.Fatalf("round trip must not introduce field errors, got %v", again.Session.FieldErrors)
	}
	if again.Session.Fields != forward.Session.Fields {
		t.Fatalf("round trip must not touch fields: %+v vs %+v", again.Session.Fields, forward.Session.Fields)
	}
}

func TestUpdateFieldsTruncatesOnRuneBoundary(t *testing.T) {
	svc, repo, _ := newWizardForTest(t, nil)

	repo.put(domain.WizardSession{ID: "ws_trunc", Step: domain.StepNames, Revision: 1})

	exact := strings.Repeat("a", 80)
	long := strings.Repeat("я", 81)
	session, err := svc.UpdateFields(context.Background(), UpdateFieldsCommand{
		SessionID:    "ws_trunc",
		Revision:     1,
		CustomerName: &exact,
		BestieName:   &long,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if session.Fields.CustomerName != exact {
		t.Fatalf("an 80-character name must survive intact, got %d chars", len(session.Fields.CustomerName))
	}
	got := []rune(session.Fields.BestieName)
	if len(got) != 80 {
		t.Fatalf("expected 80 runes after truncation, got %d", len(got))
	}
	for _, r := range got {
		if r != 'я' {
			t.Fatalf("truncation corrupted a rune: %q", session.Fields.BestieName)
		}
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc, _, _ := newWizardForTest(t, nil)

	_, err := svc.GetSession(context.Background(), "ws_missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
