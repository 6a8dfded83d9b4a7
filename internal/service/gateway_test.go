package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/tablekit/restaurant-api/internal/database"
)

func fixedGateway(rate, roll float64) *SimulatedGateway {
	g := NewSimulatedGateway(rate)
	g.float = func() float64 { return roll }
	g.intN = func(n int) int { return n - 1 }
	return g
}

func TestSimulatedGateway_Approves(t *testing.T) {
	g := fixedGateway(0.95, 0.5)

	res, err := g.Charge(context.Background(), ChargeRequest{
		PaymentID: uuid.New(),
		Amount:    dec("12.00"),
		Method:    database.PaymentMethodCreditCard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Approved {
		t.Error("expected approval")
	}
	if res.CardLastFour != "9999" || res.CardBrand != "discover" {
		t.Errorf("card details: %q %q", res.CardLastFour, res.CardBrand)
	}
	if res.Processor != "simulated_card" {
		t.Errorf("processor: got %q", res.Processor)
	}
}

func TestSimulatedGateway_Declines(t *testing.T) {
	g := fixedGateway(0.95, 0.97)

	res, err := g.Charge(context.Background(), ChargeRequest{Amount: dec("1"), Method: database.PaymentMethodDigitalWallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Approved || res.DeclineReason == "" {
		t.Errorf("expected decline, got %+v", res)
	}
	if res.CardLastFour != "" {
		t.Error("wallet payments carry no card details")
	}
}

func TestSimulatedGateway_RateClamped(t *testing.T) {
	if g := NewSimulatedGateway(-1); g.successRate != 0 {
		t.Errorf("rate: got %v, want 0", g.successRate)
	}
	if g := NewSimulatedGateway(3); g.successRate != 1 {
		t.Errorf("rate: got %v, want 1", g.successRate)
	}

	never := fixedGateway(0, 0)
	res, _ := never.Charge(context.Background(), ChargeRequest{Method: database.PaymentMethodGiftCard})
	if res.Approved {
		t.Error("zero success rate must always decline")
	}
}

func TestSimulatedGateway_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewSimulatedGateway(1).Charge(ctx, ChargeRequest{Method: database.PaymentMethodCreditCard}); err == nil {
		t.Error("expected context error")
	}
}

func TestProcessorFor(t *testing.T) {
	tests := map[database.PaymentMethod]string{
		database.PaymentMethodDebitCard:     "simulated_card",
		database.PaymentMethodMobilePayment: "simulated_wallet",
		database.PaymentMethodBankTransfer:  "simulated_bank",
		database.PaymentMethodGiftCard:      "simulated",
	}
	for method, want := range tests {
		if got := processorFor(method); got != want {
			t.Errorf("processorFor(%s) = %q, want %q", method, got, want)
		}
	}
}
