package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/enum"
	"github.com/tablekit/restaurant-api/internal/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsersByRestaurant(ctx context.Context, arg database.ListUsersByRestaurantParams) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	DeactivateUser(ctx context.Context, arg database.DeactivateUserParams) (uuid.UUID, error)
}

// UserHandler manages the staff accounts of a restaurant.
type UserHandler struct {
	store  UserStore
	logger *zap.Logger
}

func NewUserHandler(store UserStore, logger *zap.Logger) *UserHandler {
	return &UserHandler{store: store, logger: logger}
}

// RegisterRoutes expects to be mounted at /restaurants/{rid}/users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Deactivate)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type staffResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toStaffResponse(u database.User) staffResponse {
	return staffResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// List returns the active staff of the restaurant.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	users, err := h.store.ListUsersByRestaurant(r.Context(), database.ListUsersByRestaurantParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]staffResponse, len(users))
	for i, u := range users {
		resp[i] = toStaffResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff account. Only owners may create other owners.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeMessage(w, http.StatusBadRequest, "email, password, full_name, and role are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeMessage(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if !isValidRole(req.Role) {
		writeMessage(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Role == enum.UserRoleOwner {
		if claims := middleware.ClaimsFromContext(r.Context()); claims == nil || claims.Role != enum.UserRoleOwner {
			writeMessage(w, http.StatusForbidden, "only owners can create owners")
			return
		}
	}
	if len(req.Password) < 8 {
		writeMessage(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("create user: hash password", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Role:           req.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeMessage(w, http.StatusConflict, "email already exists")
			return
		}
		h.logger.Error("create user", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toStaffResponse(user))
}

// Deactivate soft-deletes a staff account by setting is_active=false.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(w, r, "id", "user ID")
	if !ok {
		return
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.UserID == userID {
		writeMessage(w, http.StatusBadRequest, "cannot deactivate yourself")
		return
	}

	_, err := h.store.DeactivateUser(r.Context(), database.DeactivateUserParams{
		ID:             userID,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeMessage(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("deactivate user", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isValidRole(role string) bool {
	switch role {
	case enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleServer,
		enum.UserRoleCashier, enum.UserRoleKitchen:
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
