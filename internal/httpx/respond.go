package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/urbandrip/storefront-api/internal/orders"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// validID rejects ids that are not UUIDs before they reach the database.
func validID(w http.ResponseWriter, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		writeMsg(w, http.StatusNotFound, "not found")
		return false
	}
	return true
}

// writeError maps domain errors to status codes. Unknown errors are logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stock *orders.StockError
	switch {
	case orders.IsValidation(err):
		writeMsg(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stock):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "insufficient stock", "detalles": stock.Details})
	case errors.Is(err, orders.ErrNotFound):
		writeMsg(w, http.StatusNotFound, "not found")
	case errors.Is(err, orders.ErrProductInactive):
		writeMsg(w, http.StatusConflict, "product is not available")
	case errors.Is(err, orders.ErrReservationExpired):
		writeMsg(w, http.StatusConflict, "reservation expired")
	case errors.Is(err, orders.ErrInvalidTransition):
		writeMsg(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		writeMsg(w, http.StatusInternalServerError, "internal error")
	}
}
