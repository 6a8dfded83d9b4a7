package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/database"
	"go.uber.org/zap"
)

// CatalogStore resolves menu items and modifiers within a tenant.
// Satisfied by *database.Queries.
type CatalogStore interface {
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.MenuItem, error)
	GetModifierForOrder(ctx context.Context, arg database.GetModifierForOrderParams) (database.Modifier, error)
}

// ItemRequest is one requested order line.
type ItemRequest struct {
	MenuItemID          uuid.UUID
	Quantity            int32
	SpecialInstructions string
	Modifiers           []ModifierRequest
}

// ModifierRequest references a modifier applied to each unit of a line.
type ModifierRequest struct {
	ModifierID uuid.UUID
	Quantity   int32
}

type PricedModifier struct {
	ModifierID uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int32
	TotalPrice decimal.Decimal
}

type PricedItem struct {
	MenuItemID          uuid.UUID
	Name                string
	Description         pgtype.Text
	PrepTimeMinutes     pgtype.Int4
	Quantity            int32
	UnitPrice           decimal.Decimal
	TotalPrice          decimal.Decimal
	SpecialInstructions string
	Modifiers           []PricedModifier
}

type PricingResult struct {
	Subtotal decimal.Decimal
	Items    []PricedItem
}

// PricingCalculator turns requested lines into priced lines using the
// catalog's current prices. It performs reads only.
type PricingCalculator struct {
	catalog CatalogStore
	logger  *zap.Logger
}

func NewPricingCalculator(catalog CatalogStore, logger *zap.Logger) *PricingCalculator {
	return &PricingCalculator{catalog: catalog, logger: logger}
}

// CalculatePricing prices every line as
// (unit_price + Σ modifier_price × modifier_qty) × quantity.
// An unknown menu item aborts pricing; an unknown modifier is skipped.
func (p *PricingCalculator) CalculatePricing(ctx context.Context, tenant Tenant, items []ItemRequest) (*PricingResult, error) {
	result := &PricingResult{Subtotal: decimal.Zero}

	for i, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		menuItem, err := p.catalog.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:             item.MenuItemID,
			OrganizationID: tenant.OrganizationID,
			RestaurantID:   tenant.RestaurantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d] %s: %w", i, item.MenuItemID, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}

		unitPrice := numericToDecimal(menuItem.Price)
		perUnitModifiers := decimal.Zero
		var modifiers []PricedModifier

		for j, mod := range item.Modifiers {
			modifier, err := p.catalog.GetModifierForOrder(ctx, database.GetModifierForOrderParams{
				ID:             mod.ModifierID,
				OrganizationID: tenant.OrganizationID,
				RestaurantID:   tenant.RestaurantID,
			})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					p.logger.Debug("skipping unknown modifier",
						zap.Int("item", i),
						zap.Int("modifier", j),
						zap.String("modifier_id", mod.ModifierID.String()),
					)
					continue
				}
				return nil, fmt.Errorf("item[%d].modifiers[%d]: get modifier: %w", i, j, err)
			}

			qty := mod.Quantity
			if qty < 1 {
				qty = 1
			}
			modPrice := numericToDecimal(modifier.Price)
			modTotal := modPrice.Mul(decimal.NewFromInt32(qty))
			perUnitModifiers = perUnitModifiers.Add(modTotal)
			modifiers = append(modifiers, PricedModifier{
				ModifierID: modifier.ID,
				Name:       modifier.Name,
				UnitPrice:  modPrice,
				Quantity:   qty,
				TotalPrice: modTotal,
			})
		}

		total := unitPrice.Add(perUnitModifiers).Mul(decimal.NewFromInt32(item.Quantity))
		result.Subtotal = result.Subtotal.Add(total)
		result.Items = append(result.Items, PricedItem{
			MenuItemID:          menuItem.ID,
			Name:                menuItem.Name,
			Description:         menuItem.Description,
			PrepTimeMinutes:     menuItem.PrepTimeMinutes,
			Quantity:            item.Quantity,
			UnitPrice:           unitPrice,
			TotalPrice:          total,
			SpecialInstructions: item.SpecialInstructions,
			Modifiers:           modifiers,
		})
	}

	return result, nil
}
