package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/NomanAhmed1999/vatika/internal/services"
)

func newPublicRouter(compositions services.CompositionService) chi.Router {
	h := NewPublicHandlers(compositions)
	r := chi.NewRouter()
	r.Route("/public", h.Routes)
	return r
}

func TestListConcernsEndpoint(t *testing.T) {
	router := newPublicRouter(&fakeCompositionService{})

	req := httptest.NewRequest(http.MethodGet, "/public/concerns", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	payload := decodeJSONBody(t, rec)
	concerns, ok := payload["concerns"].([]any)
	if !ok || len(concerns) != 3 {
		t.Fatalf("concerns payload = %v", payload["concerns"])
	}

	byTag := map[string]string{}
	for _, entry := range concerns {
		concern, ok := entry.(map[string]any)
		if !ok {
			t.Fatalf("concern entry = %v", entry)
		}
		byTag[concern["tag"].(string)] = concern["background_color"].(string)
	}
	if byTag["hair_fall"] != "#8CC63F" {
		t.Fatalf("hair_fall colour = %q", byTag["hair_fall"])
	}
	if byTag["dull_weak"] != "#F8C156" {
		t.Fatalf("dull_weak colour = %q", byTag["dull_weak"])
	}
	if byTag["dry_frizzy"] != "#9C2C7F" {
		t.Fatalf("dry_frizzy colour = %q", byTag["dry_frizzy"])
	}
}

func TestShareTargetsEndpoint(t *testing.T) {
	compositions := &fakeCompositionService{targets: []services.ShareTarget{
		{Name: "download", URL: "https://signed.example.com/bottle.png"},
		{Name: "whatsapp", URL: "https://wa.me/?text=hello"},
	}}
	router := newPublicRouter(compositions)

	req := httptest.NewRequest(http.MethodGet, "/public/share-targets?session_id=ws_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeJSONBody(t, rec)
	targets, ok := payload["targets"].([]any)
	if !ok || len(targets) != 2 {
		t.Fatalf("targets payload = %v", payload["targets"])
	}
	first, ok := targets[0].(map[string]any)
	if !ok || first["name"] != "download" {
		t.Fatalf("first target = %v", targets[0])
	}
}

func TestShareTargetsRequiresSessionID(t *testing.T) {
	router := newPublicRouter(&fakeCompositionService{})

	req := httptest.NewRequest(http.MethodGet, "/public/share-targets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestShareTargetsMissingComposition(t *testing.T) {
	router := newPublicRouter(&fakeCompositionService{err: services.ErrCompositionMissing})

	req := httptest.NewRequest(http.MethodGet, "/public/share-targets?session_id=ws_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	payload := decodeJSONBody(t, rec)
	if payload["error"] != "composition_not_found" {
		t.Fatalf("error code = %v", payload["error"])
	}
}
