package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/platform/httpx"
	"github.com/NomanAhmed1999/vatika/internal/services"
)

const maxOrderBodySize = 32 * 1024

// OrderHandlers exposes the public order submission endpoint.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs handlers over the order service.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submitOrder)
}

type submitOrderRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	BestieName  string `json:"bestie_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	HairConcern string `json:"hair_concern"`
	ImageURL    string `json:"image_url"`
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req submitOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.orders.Submit(ctx, services.SubmitOrderCommand{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		BestieName:  req.BestieName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		HairConcern: domain.HairConcern(req.HairConcern),
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"customer": buildCustomerPayload(result.Customer),
	})
}
