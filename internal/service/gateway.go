package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/database"
)

// DefaultPaymentSuccessRate is the approval rate of the simulated gateway.
const DefaultPaymentSuccessRate = 0.95

type ChargeRequest struct {
	PaymentID     uuid.UUID
	TransactionID string
	Amount        decimal.Decimal
	Method        database.PaymentMethod
}

type ChargeResult struct {
	Approved      bool
	Processor     string
	CardLastFour  string
	CardBrand     string
	DeclineReason string
}

// PaymentGateway authorizes a single non-cash charge. A declined charge is
// a result, not an error; errors mean the gateway could not be reached.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// SimulatedGateway approves charges at a fixed rate and fabricates masked
// card details for card methods.
type SimulatedGateway struct {
	successRate float64
	float       func() float64
	intN        func(n int) int
}

func NewSimulatedGateway(successRate float64) *SimulatedGateway {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &SimulatedGateway{successRate: successRate, float: rand.Float64, intN: rand.Intn}
}

var cardBrands = []string{"visa", "mastercard", "amex", "discover"}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}

	result := ChargeResult{Processor: processorFor(req.Method)}
	if req.Method == database.PaymentMethodCreditCard || req.Method == database.PaymentMethodDebitCard {
		result.CardLastFour = fmt.Sprintf("%04d", g.intN(10000))
		result.CardBrand = cardBrands[g.intN(len(cardBrands))]
	}

	if g.float() < g.successRate {
		result.Approved = true
		return result, nil
	}
	result.DeclineReason = "declined by processor"
	return result, nil
}

func processorFor(method database.PaymentMethod) string {
	switch method {
	case database.PaymentMethodCreditCard, database.PaymentMethodDebitCard:
		return "simulated_card"
	case database.PaymentMethodMobilePayment, database.PaymentMethodDigitalWallet:
		return "simulated_wallet"
	case database.PaymentMethodBankTransfer:
		return "simulated_bank"
	}
	return "simulated"
}
