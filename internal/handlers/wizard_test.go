package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/services"
)

func newWizardRouter(wizard services.WizardService, photos services.PhotoService, compositions services.CompositionService) chi.Router {
	h := NewWizardHandlers(wizard, photos, compositions, 1<<20)
	r := chi.NewRouter()
	r.Route("/wizard", h.Routes)
	return r
}

func decodeJSONBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return payload
}

func TestCreateSessionEndpoint(t *testing.T) {
	wizard := &fakeWizardService{session: testSession()}
	router := newWizardRouter(wizard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	payload := decodeJSONBody(t, rec)
	session, ok := payload["session"].(map[string]any)
	if !ok {
		t.Fatalf("missing session payload: %v", payload)
	}
	if session["id"] != "ws_1" {
		t.Fatalf("session id = %v, want ws_1", session["id"])
	}
	if session["revision"] != float64(2) {
		t.Fatalf("revision = %v, want 2", session["revision"])
	}
}

func TestGetSessionNotFoundEndpoint(t *testing.T) {
	wizard := &fakeWizardService{err: services.ErrSessionNotFound}
	router := newWizardRouter(wizard, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/wizard/sessions/ws_missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	payload := decodeJSONBody(t, rec)
	if payload["error"] != "session_not_found" {
		t.Fatalf("error code = %v, want session_not_found", payload["error"])
	}
}

func TestUpdateFieldsEndpoint(t *testing.T) {
	wizard := &fakeWizardService{session: testSession()}
	router := newWizardRouter(wizard, nil, nil)

	body := `{"revision":2,"customer_name":"Aisha","bestie_name":"Mona"}`
	req := httptest.NewRequest(http.MethodPatch, "/wizard/sessions/ws_1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if wizard.lastUpdate.SessionID != "ws_1" || wizard.lastUpdate.Revision != 2 {
		t.Fatalf("unexpected command %+v", wizard.lastUpdate)
	}
	if wizard.lastUpdate.CustomerName == nil || *wizard.lastUpdate.CustomerName != "Aisha" {
		t.Fatalf("customer name not forwarded: %+v", wizard.lastUpdate)
	}
	if wizard.lastUpdate.ContactEmail != nil {
		t.Fatalf("absent fields must stay nil")
	}
}

func TestAdvanceEndpointRevisionMismatch(t *testing.T) {
	wizard := &fakeWizardService{err: services.ErrRevisionMismatch}
	router := newWizardRouter(wizard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1:advance", strings.NewReader(`{"revision":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	payload := decodeJSONBody(t, rec)
	if payload["error"] != "revision_mismatch" {
		t.Fatalf("error code = %v, want revision_mismatch", payload["error"])
	}
}

func TestAdvanceEndpointToleratesEmptyBody(t *testing.T) {
	wizard := &fakeWizardService{advanceResult: services.AdvanceResult{Session: testSession(), Moved: true}}
	router := newWizardRouter(wizard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1:advance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if wizard.lastStep.SessionID != "ws_1" || wizard.lastStep.Revision != 0 {
		t.Fatalf("unexpected step command %+v", wizard.lastStep)
	}
	payload := decodeJSONBody(t, rec)
	if payload["moved"] != true {
		t.Fatalf("moved = %v, want true", payload["moved"])
	}
}

func TestAdvanceEndpointReportsSubmission(t *testing.T) {
	wizard := &fakeWizardService{advanceResult: services.AdvanceResult{
		Session:        testSession(),
		Moved:          true,
		OrderSubmitted: true,
		CustomerID:     "cus_1",
	}}
	router := newWizardRouter(wizard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1:advance", strings.NewReader(`{"revision":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	payload := decodeJSONBody(t, rec)
	if payload["order_submitted"] != true {
		t.Fatalf("order_submitted = %v, want true", payload["order_submitted"])
	}
	if payload["customer_id"] != "cus_1" {
		t.Fatalf("customer_id = %v, want cus_1", payload["customer_id"])
	}
}

func TestUploadPhotoEndpoint(t *testing.T) {
	photos := &fakePhotoService{session: testSession()}
	router := newWizardRouter(&fakeWizardService{}, photos, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("photo", "selfie.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("png-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = writer.WriteField("source", "camera")
	_ = writer.WriteField("revision", "2")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1/photo", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	cmd := photos.lastUpload
	if cmd.SessionID != "ws_1" || cmd.Revision != 2 {
		t.Fatalf("unexpected upload command %+v", cmd)
	}
	if cmd.Source != domain.CaptureSourceCamera {
		t.Fatalf("source = %q, want camera", cmd.Source)
	}
	if string(cmd.Data) != "png-bytes" {
		t.Fatalf("data = %q", cmd.Data)
	}
}

func TestUploadPhotoEndpointRequiresPhotoPart(t *testing.T) {
	router := newWizardRouter(&fakeWizardService{}, &fakePhotoService{}, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("source", "upload")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1/photo", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCropPhotoEndpoint(t *testing.T) {
	photos := &fakePhotoService{session: testSession()}
	router := newWizardRouter(&fakeWizardService{}, photos, nil)

	body := `{"revision":2,"x":10,"y":20,"width":100,"height":100,"pixel_ratio":2}`
	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1/photo:crop", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	region := photos.lastCrop.Region
	if region.X != 10 || region.Y != 20 || region.Width != 100 || region.PixelRatio != 2 {
		t.Fatalf("unexpected region %+v", region)
	}
}

func TestProcessPhotoEndpointMapsUpstreamErrors(t *testing.T) {
	photos := &fakePhotoService{err: &services.ProcessingError{
		Kind:    services.ProcessingErrorNoFaceDetected,
		Message: "no face detected",
		Status:  422,
	}}
	router := newWizardRouter(&fakeWizardService{}, photos, nil)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1/photo:process", strings.NewReader(`{"revision":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	payload := decodeJSONBody(t, rec)
	if payload["error"] != "processing_no_face_detected" {
		t.Fatalf("error code = %v", payload["error"])
	}
	if payload["kind"] != "no_face_detected" {
		t.Fatalf("kind = %v, want no_face_detected", payload["kind"])
	}
}

func TestAdvanceEndpointMapsValidationErrors(t *testing.T) {
	wizard := &fakeWizardService{err: &services.ValidationError{Fields: services.FieldErrors{
		"email": "Please enter a valid email address",
	}}}
	router := newWizardRouter(wizard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1:advance", strings.NewReader(`{"revision":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	payload := decodeJSONBody(t, rec)
	if payload["error"] != "validation_failed" {
		t.Fatalf("error code = %v", payload["error"])
	}
	fields, ok := payload["field_errors"].(map[string]any)
	if !ok || fields["email"] != "Please enter a valid email address" {
		t.Fatalf("field_errors = %v", payload["field_errors"])
	}
}

func TestRenderCompositionEndpoint(t *testing.T) {
	compositions := &fakeCompositionService{result: services.CompositionResult{
		Session:     testSession(),
		ObjectPath:  "sessions/ws_1/compositions/r1/bottle.png",
		DownloadURL: "https://signed.example.com/bottle.png",
	}}
	router := newWizardRouter(&fakeWizardService{}, nil, compositions)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1/composition", strings.NewReader(`{"revision":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeJSONBody(t, rec)
	if payload["download_url"] != "https://signed.example.com/bottle.png" {
		t.Fatalf("download_url = %v", payload["download_url"])
	}
}

func TestRenderCompositionNotReady(t *testing.T) {
	compositions := &fakeCompositionService{err: services.ErrCompositionNotReady}
	router := newWizardRouter(&fakeWizardService{}, nil, compositions)

	req := httptest.NewRequest(http.MethodPost, "/wizard/sessions/ws_1/composition", strings.NewReader(`{"revision":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
