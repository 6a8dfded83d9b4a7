package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekit/restaurant-api/internal/middleware"
	"github.com/tablekit/restaurant-api/internal/service"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error to its HTTP status. Anything that
// is not one of the service error kinds is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(op, zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// tenantFromRequest combines the caller's organization with the {rid} path
// parameter already checked by RequireRestaurant.
func tenantFromRequest(w http.ResponseWriter, r *http.Request) (service.Tenant, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return service.Tenant{}, false
	}
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid restaurant ID")
		return service.Tenant{}, false
	}
	return service.Tenant{OrganizationID: claims.OrganizationID, RestaurantID: restaurantID}, true
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints whose body may be omitted.
// An empty body, including an empty chunked one, leaves dst untouched.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parseTimeParam accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
func parseTimeParam(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func numericToString(n pgtype.Numeric) string {
	return service.NumericToDecimal(n).StringFixed(2)
}

func textOrNil(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func timeOrNil(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func uuidOrNil(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func rawJSON(b []byte) json.RawMessage {
	if len(strings.TrimSpace(string(b))) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(b)
}
