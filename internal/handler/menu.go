package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/database"
	"go.uber.org/zap"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	ListModifiers(ctx context.Context, arg database.ListModifiersParams) ([]database.Modifier, error)
	CreateModifier(ctx context.Context, arg database.CreateModifierParams) (database.Modifier, error)
}

// MenuHandler handles menu item and modifier endpoints.
type MenuHandler struct {
	store  MenuStore
	logger *zap.Logger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{store: store, logger: logger}
}

// RegisterItemRoutes registers menu item endpoints.
// Expected to be mounted at /restaurants/{rid}/menu-items
func (h *MenuHandler) RegisterItemRoutes(r chi.Router) {
	r.Get("/", h.ListItems)
	r.Post("/", h.CreateItem)
	r.Patch("/{id}", h.UpdateItem)
}

// RegisterModifierRoutes registers modifier endpoints.
// Expected to be mounted at /restaurants/{rid}/modifiers
func (h *MenuHandler) RegisterModifierRoutes(r chi.Router) {
	r.Get("/", h.ListModifiers)
	r.Post("/", h.CreateModifier)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	PrepTimeMinutes *int32 `json:"prep_time_minutes"`
	IsAvailable     *bool  `json:"is_available"`
}

type updateMenuItemRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Price           *string `json:"price"`
	PrepTimeMinutes *int32  `json:"prep_time_minutes"`
	IsAvailable     *bool   `json:"is_available"`
}

type createModifierRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Price           string    `json:"price"`
	PrepTimeMinutes *int32    `json:"prep_time_minutes"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type modifierResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: textOrNil(m.Description),
		Price:       numericToString(m.Price),
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.PrepTimeMinutes.Valid {
		pt := m.PrepTimeMinutes.Int32
		resp.PrepTimeMinutes = &pt
	}
	return resp
}

func toModifierResponse(m database.Modifier) modifierResponse {
	return modifierResponse{
		ID:        m.ID,
		Name:      m.Name,
		Price:     numericToString(m.Price),
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

// --- Helpers ---

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func writePriceError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNegativePrice) {
		writeMessage(w, http.StatusBadRequest, "price must be >= 0")
		return
	}
	writeMessage(w, http.StatusBadRequest, "invalid price")
}

// --- Handlers ---

// ListItems handles GET /restaurants/{rid}/menu-items.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), database.ListMenuItemsParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		h.logger.Error("list menu items", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateItem handles POST /restaurants/{rid}/menu-items.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	var req createMenuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price == "" {
		writeMessage(w, http.StatusBadRequest, "price is required")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writePriceError(w, err)
		return
	}
	if req.PrepTimeMinutes != nil && *req.PrepTimeMinutes < 0 {
		writeMessage(w, http.StatusBadRequest, "prep_time_minutes must be >= 0")
		return
	}

	params := database.CreateMenuItemParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Name:           req.Name,
		Price:          price,
		IsAvailable:    true,
	}
	if req.Description != "" {
		params.Description = pgtype.Text{String: req.Description, Valid: true}
	}
	if req.PrepTimeMinutes != nil {
		params.PrepTimeMinutes = pgtype.Int4{Int32: *req.PrepTimeMinutes, Valid: true}
	}
	if req.IsAvailable != nil {
		params.IsAvailable = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), params)
	if err != nil {
		h.logger.Error("create menu item", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// UpdateItem handles PATCH /restaurants/{rid}/menu-items/{id}. Omitted fields are unchanged.
// Existing orders keep their price snapshots.
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "menu item ID")
	if !ok {
		return
	}

	var req updateMenuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	params := database.UpdateMenuItemParams{
		ID:             id,
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeMessage(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		params.Name = pgtype.Text{String: *req.Name, Valid: true}
	}
	if req.Description != nil {
		params.Description = pgtype.Text{String: *req.Description, Valid: true}
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			writePriceError(w, err)
			return
		}
		params.Price = price
	}
	if req.PrepTimeMinutes != nil {
		if *req.PrepTimeMinutes < 0 {
			writeMessage(w, http.StatusBadRequest, "prep_time_minutes must be >= 0")
			return
		}
		params.PrepTimeMinutes = pgtype.Int4{Int32: *req.PrepTimeMinutes, Valid: true}
	}
	if req.IsAvailable != nil {
		params.IsAvailable = pgtype.Bool{Bool: *req.IsAvailable, Valid: true}
	}

	item, err := h.store.UpdateMenuItem(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeMessage(w, http.StatusNotFound, "menu item not found")
			return
		}
		h.logger.Error("update menu item", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// ListModifiers handles GET /restaurants/{rid}/modifiers.
func (h *MenuHandler) ListModifiers(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	mods, err := h.store.ListModifiers(r.Context(), database.ListModifiersParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
	})
	if err != nil {
		h.logger.Error("list modifiers", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]modifierResponse, len(mods))
	for i, m := range mods {
		resp[i] = toModifierResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateModifier handles POST /restaurants/{rid}/modifiers.
func (h *MenuHandler) CreateModifier(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	var req createModifierRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price == "" {
		writeMessage(w, http.StatusBadRequest, "price is required")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writePriceError(w, err)
		return
	}

	mod, err := h.store.CreateModifier(r.Context(), database.CreateModifierParams{
		OrganizationID: tenant.OrganizationID,
		RestaurantID:   tenant.RestaurantID,
		Name:           req.Name,
		Price:          price,
	})
	if err != nil {
		h.logger.Error("create modifier", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toModifierResponse(mod))
}
