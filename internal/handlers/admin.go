package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/platform/httpx"
	"github.com/NomanAhmed1999/vatika/internal/platform/pagination"
	"github.com/NomanAhmed1999/vatika/internal/services"
)

const maxAdminBodySize = 8 * 1024

// AdminHandlers exposes the back-office endpoints.
type AdminHandlers struct {
	auth      services.AdminAuthService
	customers services.CustomerService
	guard     func(http.Handler) http.Handler
}

// NewAdminHandlers constructs handlers guarded by the provided bearer-token middleware.
func NewAdminHandlers(auth services.AdminAuthService, customers services.CustomerService, guard func(http.Handler) http.Handler) *AdminHandlers {
	return &AdminHandlers{
		auth:      auth,
		customers: customers,
		guard:     guard,
	}
}

// Routes wires the /admin endpoints onto the provided router. Login and
// password generation stay public; everything else requires a bearer token.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/login", h.login)
	r.Post("/password-generate", h.generatePassword)

	r.Group(func(protected chi.Router) {
		if h.guard != nil {
			protected.Use(h.guard)
		}
		protected.Get("/customers", h.listCustomers)
		protected.Patch("/customers/{customerID}", h.updateCustomerStatus)
		protected.Get("/customers:export", h.exportCustomers)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AdminHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", "admin service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"token":      result.Token,
		"expires_at": formatTime(result.ExpiresAt),
		"user": map[string]any{
			"id":        result.User.ID,
			"email":     result.User.Email,
			"full_name": result.User.FullName,
			"superuser": result.User.Superuser,
		},
	})
}

type generatePasswordRequest struct {
	Email string `json:"email"`
}

func (h *AdminHandlers) generatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", "admin service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req generatePasswordRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	generated, err := h.auth.GeneratePassword(ctx, req.Email)
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"email":    generated.Email,
		"password": generated.Password,
	})
}

func (h *AdminHandlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", "admin service is unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.Parse(r.URL.Query(), pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.customers.List(ctx, services.CustomerListQuery{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
		Pager: domain.Pagination{
			PageSize:  params.PageSize,
			PageToken: params.PageToken,
		},
	})
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	customers := make([]customerPayload, 0, len(result.Customers))
	for _, customer := range result.Customers {
		customers = append(customers, buildCustomerPayload(customer))
	}
	payload := map[string]any{
		"customers": customers,
		"counts": map[string]int{
			"total":     result.Counts.Total,
			"pending":   result.Counts.Pending,
			"delivered": result.Counts.Delivered,
		},
	}
	if result.NextPageToken != "" {
		payload["next_page_token"] = result.NextPageToken
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandlers) updateCustomerStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", "admin service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	customer, err := h.customers.UpdateStatus(ctx, chi.URLParam(r, "customerID"), domain.CustomerStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"customer": buildCustomerPayload(customer)})
}

func (h *AdminHandlers) exportCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customers == nil {
		httpx.WriteError(ctx, w, httpx.NewError("admin_service_unavailable", "admin service is unavailable", http.StatusServiceUnavailable))
		return
	}

	csvData, err := h.customers.ExportCSV(ctx, services.CustomerListQuery{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		h.writeAdminError(ctx, w, err)
		return
	}

	fileName := "customers-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csvData)
}

func (h *AdminHandlers) writeAdminError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "email or password is incorrect", http.StatusUnauthorized))
	case errors.Is(err, services.ErrAdminNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("account_not_found", "no account registered under this email", http.StatusNotFound))
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("customer_not_found", "customer not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCustomerInvalidStatus):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_status", "status must be pending or delivered", http.StatusBadRequest))
	case errors.Is(err, services.ErrAdminUnavailable), errors.Is(err, services.ErrCustomerUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "please retry shortly", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
	}
}
