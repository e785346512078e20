package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/catalog"
	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

type PutProductReq struct {
	Name      string          `json:"name" validate:"max=200"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     *int            `json:"stock" validate:"required,min=0"`
}

type ProductResp struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	Version   int             `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toProductResp(p domain.Product) ProductResp {
	return ProductResp{ID: p.ID, Name: p.Name, UnitPrice: p.UnitPrice, Stock: p.Stock, Version: p.Version, UpdatedAt: p.UpdatedAt}
}

type ProductsHandler struct {
	Catalog  *catalog.Service
	Validate *validator.Validate
	Logger   *zap.Logger
}

func NewProductsHandler(c *catalog.Service, log *zap.Logger) *ProductsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductsHandler{Catalog: c, Validate: validator.New(), Logger: log}
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.putProduct)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

func (h *ProductsHandler) putProduct(w http.ResponseWriter, r *http.Request) {
	var req PutProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if req.UnitPrice.IsNegative() {
		badRequest(w, "unit_price must not be negative")
		return
	}

	p, err := h.Catalog.Save(r.Context(), domain.Product{
		ID:        chi.URLParam(r, "id"),
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Stock:     *req.Stock,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}
