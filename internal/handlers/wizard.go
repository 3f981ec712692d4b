package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/platform/httpx"
	"github.com/NomanAhmed1999/vatika/internal/services"
)

const (
	maxSessionBodySize = 16 * 1024
	defaultPhotoMemory = 4 << 20
)

// WizardHandlers exposes the wizard session endpoints.
type WizardHandlers struct {
	wizard       services.WizardService
	photos       services.PhotoService
	compositions services.CompositionService
	maxPhotoSize int64
}

// NewWizardHandlers constructs handlers over the wizard, photo, and composition services.
func NewWizardHandlers(wizard services.WizardService, photos services.PhotoService, compositions services.CompositionService, maxPhotoSize int64) *WizardHandlers {
	return &WizardHandlers{
		wizard:       wizard,
		photos:       photos,
		compositions: compositions,
		maxPhotoSize: maxPhotoSize,
	}
}

// Routes wires the /wizard endpoints onto the provided router.
func (h *WizardHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/sessions", h.createSession)
	r.Get("/sessions/{sessionID}", h.getSession)
	r.Patch("/sessions/{sessionID}", h.updateFields)
	r.Post("/sessions/{sessionID}:advance", h.advance)
	r.Post("/sessions/{sessionID}:retreat", h.retreat)
	r.Post("/sessions/{sessionID}:reset", h.reset)
	r.Post("/sessions/{sessionID}/photo", h.uploadPhoto)
	r.Post("/sessions/{sessionID}/photo:crop", h.cropPhoto)
	r.Post("/sessions/{sessionID}/photo:process", h.processPhoto)
	r.Post("/sessions/{sessionID}/composition", h.renderComposition)
}

func (h *WizardHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wizard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wizard_service_unavailable", "wizard service is unavailable", http.StatusServiceUnavailable))
		return
	}

	session, err := h.wizard.CreateSession(ctx)
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"session": buildSessionPayload(session)})
}

func (h *WizardHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wizard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wizard_service_unavailable", "wizard service is unavailable", http.StatusServiceUnavailable))
		return
	}

	session, err := h.wizard.GetSession(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

type updateFieldsRequest struct {
	Revision       int64   `json:"revision"`
	CustomerName   *string `json:"customer_name"`
	BestieName     *string `json:"bestie_name"`
	HairConcern    *string `json:"hair_concern"`
	ContactName    *string `json:"contact_name"`
	ContactEmail   *string `json:"contact_email"`
	ContactPhone   *string `json:"contact_phone"`
	ContactAddress *string `json:"contact_address"`
}

func (h *WizardHandlers) updateFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wizard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wizard_service_unavailable", "wizard service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxSessionBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateFieldsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	session, err := h.wizard.UpdateFields(ctx, services.UpdateFieldsCommand{
		SessionID:      chi.URLParam(r, "sessionID"),
		Revision:       req.Revision,
		CustomerName:   req.CustomerName,
		BestieName:     req.BestieName,
		HairConcern:    req.HairConcern,
		ContactName:    req.ContactName,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		ContactAddress: req.ContactAddress,
	})
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func (h *WizardHandlers) advance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wizard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wizard_service_unavailable", "wizard service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.stepCommand(ctx, w, r)
	if !ok {
		return
	}
	result, err := h.wizard.Advance(ctx, cmd)
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}

	payload := map[string]any{
		"session":         buildSessionPayload(result.Session),
		"moved":           result.Moved,
		"order_submitted": result.OrderSubmitted,
	}
	if result.CustomerID != "" {
		payload["customer_id"] = result.CustomerID
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *WizardHandlers) retreat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wizard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wizard_service_unavailable", "wizard service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.stepCommand(ctx, w, r)
	if !ok {
		return
	}
	session, err := h.wizard.Retreat(ctx, cmd)
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func (h *WizardHandlers) reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wizard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wizard_service_unavailable", "wizard service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.stepCommand(ctx, w, r)
	if !ok {
		return
	}
	session, err := h.wizard.Reset(ctx, cmd)
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func (h *WizardHandlers) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.photos == nil {
		httpx.WriteError(ctx, w, httpx.NewError("photo_service_unavailable", "photo service is unavailable", http.StatusServiceUnavailable))
		return
	}

	maxSize := h.maxPhotoSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+defaultPhotoMemory)
	if err := r.ParseMultipartForm(defaultPhotoMemory); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request must be multipart/form-data with a photo part", http.StatusBadRequest))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("photo")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "photo part is required", http.StatusBadRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read photo part", http.StatusBadRequest))
		return
	}
	if int64(len(data)) > maxSize {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "photo exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}

	revision, err := parseRevisionField(r.FormValue("revision"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "revision must be an integer", http.StatusBadRequest))
		return
	}

	session, err := h.photos.Upload(ctx, services.UploadPhotoCommand{
		SessionID:   chi.URLParam(r, "sessionID"),
		Revision:    revision,
		Source:      domain.CaptureSource(strings.TrimSpace(r.FormValue("source"))),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

type cropRequest struct {
	Revision   int64   `json:"revision"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixel_ratio"`
}

func (h *WizardHandlers) cropPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.photos == nil {
		httpx.WriteError(ctx, w, httpx.NewError("photo_service_unavailable", "photo service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxSessionBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req cropRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	session, err := h.photos.Crop(ctx, services.CropPhotoCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		Revision:  req.Revision,
		Region: domain.CropRegion{
			X:          req.X,
			Y:          req.Y,
			Width:      req.Width,
			Height:     req.Height,
			PixelRatio: req.PixelRatio,
		},
	})
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func (h *WizardHandlers) processPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.photos == nil {
		httpx.WriteError(ctx, w, httpx.NewError("photo_service_unavailable", "photo service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.stepCommand(ctx, w, r)
	if !ok {
		return
	}
	session, err := h.photos.Process(ctx, services.ProcessPhotoCommand{
		SessionID: cmd.SessionID,
		Revision:  cmd.Revision,
	})
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func (h *WizardHandlers) renderComposition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.compositions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("composition_service_unavailable", "composition service is unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, ok := h.stepCommand(ctx, w, r)
	if !ok {
		return
	}
	result, err := h.compositions.Render(ctx, services.RenderCompositionCommand{
		SessionID: cmd.SessionID,
		Revision:  cmd.Revision,
	})
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"session":      buildSessionPayload(result.Session),
		"object_path":  result.ObjectPath,
		"download_url": result.DownloadURL,
		"expires_at":   formatTime(result.ExpiresAt),
	})
}

// stepCommand reads the {revision} body shared by the step mutation endpoints.
func (h *WizardHandlers) stepCommand(ctx context.Context, w http.ResponseWriter, r *http.Request) (services.StepCommand, bool) {
	var req struct {
		Revision int64 `json:"revision"`
	}
	body, err := readLimitedBody(r, maxSessionBodySize)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return services.StepCommand{}, false
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
			return services.StepCommand{}, false
		}
	}
	return services.StepCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		Revision:  req.Revision,
	}, true
}

func parseRevisionField(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	var revision int64
	if err := json.Unmarshal([]byte(value), &revision); err != nil {
		return 0, err
	}
	return revision, nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeWizardError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var procErr *services.ProcessingError
	if errors.As(err, &procErr) {
		httpx.WriteError(ctx, w, httpx.
			NewError("processing_"+string(procErr.Kind), procErr.Message, processingStatus(procErr.Kind)).
			WithDetails(map[string]any{"kind": string(procErr.Kind)}))
		return
	}
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		httpx.WriteError(ctx, w, httpx.
			NewError("validation_failed", "one or more fields are invalid", http.StatusBadRequest).
			WithFieldErrors(validationErr.Fields))
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("session_not_found", "wizard session not found", http.StatusNotFound))
	case errors.Is(err, services.ErrRevisionMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("revision_mismatch", "session was modified by another request", http.StatusConflict))
	case errors.Is(err, services.ErrPhotoTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "photo exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, services.ErrPhotoMissing):
		httpx.WriteError(ctx, w, httpx.NewError("photo_missing", "no photo uploaded for this session", http.StatusConflict))
	case errors.Is(err, services.ErrCropMissing):
		httpx.WriteError(ctx, w, httpx.NewError("crop_missing", "photo has not been cropped yet", http.StatusConflict))
	case errors.Is(err, services.ErrCompositionNotReady):
		httpx.WriteError(ctx, w, httpx.NewError("composition_not_ready", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCompositionMissing):
		httpx.WriteError(ctx, w, httpx.NewError("composition_not_found", "no rendered composition for this session", http.StatusNotFound))
	case errors.Is(err, services.ErrWizardInvalidInput), errors.Is(err, services.ErrPhotoInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrWizardUnavailable), errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "please retry shortly", http.StatusServiceUnavailable))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request cancelled or timed out", http.StatusGatewayTimeout))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
	}
}

func processingStatus(kind services.ProcessingErrorKind) int {
	switch kind {
	case services.ProcessingErrorUnsupportedFormat:
		return http.StatusBadRequest
	case services.ProcessingErrorNoFaceDetected:
		return http.StatusUnprocessableEntity
	case services.ProcessingErrorTooLarge:
		return http.StatusRequestEntityTooLarge
	case services.ProcessingErrorUpstreamDown:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
