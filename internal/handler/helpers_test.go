package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekit/restaurant-api/internal/auth"
	"github.com/tablekit/restaurant-api/internal/enum"
	"github.com/tablekit/restaurant-api/internal/middleware"
	"github.com/tablekit/restaurant-api/internal/service"
	"go.uber.org/zap"
)

const testJWTSecret = "test-jwt-secret"

var testLogger = zap.NewNop()

// restaurantRouter mounts register under /restaurants/{rid}/<prefix> behind
// the same auth middleware the server uses.
func restaurantRouter(prefix string, register func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/restaurants/{rid}", func(r chi.Router) {
		r.Use(middleware.RequireRestaurant)
		r.Route(prefix, register)
	})
	return r
}

func testClaims(orgID, restaurantID uuid.UUID) *auth.Claims {
	return &auth.Claims{
		UserID:         uuid.New(),
		OrganizationID: orgID,
		RestaurantID:   restaurantID,
		Role:           enum.UserRoleServer,
	}
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	// Generate a real JWT token from claims
	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.OrganizationID, claims.RestaurantID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// doChunkedRequest sends body without a Content-Length, the way a client
// streaming with Transfer-Encoding: chunked would.
func doChunkedRequest(t *testing.T, router http.Handler, method, path, body string, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.OrganizationID, claims.RestaurantID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(method, path, io.MultiReader(bytes.NewBufferString(body)))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(s)
	return n
}

func restaurantPath(tenant service.Tenant, suffix string) string {
	return "/restaurants/" + tenant.RestaurantID.String() + suffix
}

func newTenant() service.Tenant {
	return service.Tenant{OrganizationID: uuid.New(), RestaurantID: uuid.New()}
}

func tenantAuth(tenant service.Tenant) *auth.Claims {
	return testClaims(tenant.OrganizationID, tenant.RestaurantID)
}
