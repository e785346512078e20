package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

type errorResp struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type stockDetails struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResp{Error: msg})
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		ise  *domain.InsufficientStockError
		verr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ise):
		writeJSON(w, http.StatusConflict, errorResp{
			Error:   "insufficient stock",
			Details: stockDetails{ProductID: ise.ProductID, Requested: ise.Requested, Available: ise.Available},
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResp{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument):
		badRequest(w, err.Error())
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr))
		for _, fe := range verr {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "validation failed", Details: fields})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "internal error"})
	}
}
