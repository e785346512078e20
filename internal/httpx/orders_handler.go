package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
	"github.com/ariefcatur/go-order-inventory/internal/orders"
)

type lineReq struct {
	ProductIDs []string `json:"product_ids" validate:"min=1,dive,required"`
}

// CreateOrderReq accepts either a flat product_ids list (one line) or
// explicit lines.
type CreateOrderReq struct {
	UserID     string     `json:"user_id" validate:"required"`
	ProductIDs []string   `json:"product_ids" validate:"omitempty,dive,required"`
	Lines      []lineReq  `json:"lines" validate:"omitempty,dive"`
	PlacedDate *time.Time `json:"placed_date"`
}

type AddLineItemReq struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,required"`
}

type AddLineItemResp struct {
	LineItemID string `json:"line_item_id"`
}

type OrdersHandler struct {
	Orders   *orders.Manager
	Validate *validator.Validate
	Logger   *zap.Logger
}

func NewOrdersHandler(m *orders.Manager, log *zap.Logger) *OrdersHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrdersHandler{Orders: m, Validate: validator.New(), Logger: log}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.cancelOrder)
	r.Post("/orders/{id}/line-items", h.addLineItem)
	r.Delete("/line-items/{id}", h.removeLineItem)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if len(req.ProductIDs) == 0 && len(req.Lines) == 0 {
		badRequest(w, "product_ids or lines is required")
		return
	}

	in := orders.CreateOrderInput{UserID: req.UserID, PlacedDate: req.PlacedDate}
	if len(req.ProductIDs) > 0 {
		in.Lines = append(in.Lines, orders.LineSpec{ProductIDs: req.ProductIDs})
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, orders.LineSpec{ProductIDs: l.ProductIDs})
	}

	o, err := h.Orders.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.NewOrderView(o))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	v, err := h.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// updateOrder only accepts placed_date; totals are derived and any attempt
// to set them is rejected.
func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		badRequest(w, "invalid json")
		return
	}
	var patch orders.OrderPatch
	for k, raw := range fields {
		switch k {
		case "placed_date":
			var t time.Time
			if err := json.Unmarshal(raw, &t); err != nil {
				badRequest(w, "placed_date must be an RFC 3339 timestamp")
				return
			}
			patch.PlacedDate = &t
		case "total_price", "total_quantity":
			badRequest(w, k+" is derived from line items and cannot be set")
			return
		default:
			badRequest(w, "field "+k+" cannot be updated")
			return
		}
	}

	o, err := h.Orders.UpdateOrder(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.NewOrderView(o))
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) addLineItem(w http.ResponseWriter, r *http.Request) {
	var req AddLineItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	id, err := h.Orders.AddLineItem(r.Context(), chi.URLParam(r, "id"), req.ProductIDs)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if id == "" {
		// nothing could be reserved under best effort
		writeJSON(w, http.StatusOK, AddLineItemResp{})
		return
	}
	writeJSON(w, http.StatusCreated, AddLineItemResp{LineItemID: id})
}

func (h *OrdersHandler) removeLineItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.RemoveLineItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
