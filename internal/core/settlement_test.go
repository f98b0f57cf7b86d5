package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestNewPayment(t *testing.T) {
	payer := User{ID: 2, Name: "Bea"}
	receiver := User{ID: 1, Name: "Alva"}

	p, err := NewPayment(payer, receiver, 5000, "SEK", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewPayment() error = %v", err)
	}

	if !p.IsPayment {
		t.Fatal("expected a payment expense")
	}
	if p.Name != "Bea payed 50.00 SEK to Alva" {
		t.Fatalf("unexpected name %q", p.Name)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("payment fails its own invariants: %v", err)
	}
	if len(p.Shares) != 2 {
		t.Fatalf("payment has %d shares, want 2", len(p.Shares))
	}
	if p.Shares[0].UserID != 2 || p.Shares[0].Share != 5000 {
		t.Fatalf("payer share = %+v, want +5000 for user 2", p.Shares[0])
	}
	if p.Shares[1].UserID != 1 || p.Shares[1].Share != -5000 {
		t.Fatalf("receiver share = %+v, want -5000 for user 1", p.Shares[1])
	}
}

func TestNewPaymentRejectsInvalidInput(t *testing.T) {
	a := User{ID: 1, Name: "A"}
	b := User{ID: 2, Name: "B"}

	if _, err := NewPayment(a, b, 0, "SEK", time.Now()); !errors.Is(err, ErrInvalidTotal) {
		t.Fatalf("zero total: got %v", err)
	}
	if _, err := NewPayment(a, a, 100, "SEK", time.Now()); !errors.Is(err, ErrSamePayerReceiver) {
		t.Fatalf("self payment: got %v", err)
	}
	if _, err := NewPayment(a, b, 100, "kronor", time.Now()); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("bad currency: got %v", err)
	}
}

func TestSuggestSettlement(t *testing.T) {
	tests := []struct {
		name  string
		entry BalanceEntry
		want  SettlementSuggestion
	}{
		{
			name:  "counterparty in deficit pays the caller",
			entry: BalanceEntry{Currency: "SEK", UserID: 2, Balance: -5000},
			want:  SettlementSuggestion{PayerID: 2, ReceiverID: 1, Total: 5000, Currency: "SEK"},
		},
		{
			name:  "caller in deficit pays the counterparty",
			entry: BalanceEntry{Currency: "SEK", UserID: 2, Balance: 1200},
			want:  SettlementSuggestion{PayerID: 1, ReceiverID: 2, Total: 1200, Currency: "SEK"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestSettlement(tt.entry, 1); got != tt.want {
				t.Fatalf("SuggestSettlement() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSwishURL(t *testing.T) {
	receiver := User{ID: 1, Name: "Alva", PhoneNumber: strPtr("+46701234567")}

	u, err := SwishURL(receiver, 5000, "SEK", "Settling up")
	if err != nil {
		t.Fatalf("SwishURL() error = %v", err)
	}
	if !strings.HasPrefix(u, "https://app.swish.nu/1/p/sw/?") {
		t.Fatalf("unexpected deep link prefix: %q", u)
	}
	for _, part := range []string{"amt=50.00", "cur=SEK", "sw=%2B46701234567"} {
		if !strings.Contains(u, part) {
			t.Fatalf("deep link %q missing %q", u, part)
		}
	}
}

func TestSwishURLFailures(t *testing.T) {
	noPhone := User{ID: 1, Name: "Alva"}
	withPhone := User{ID: 1, Name: "Alva", PhoneNumber: strPtr("+46701234567")}

	if _, err := SwishURL(noPhone, 100, "SEK", ""); !errors.Is(err, ErrNoPhoneNumber) {
		t.Fatalf("missing phone: got %v", err)
	}
	if _, err := SwishURL(withPhone, 100, "EUR", ""); !errors.Is(err, ErrUnsupportedCurrency) {
		t.Fatalf("unsupported currency: got %v", err)
	}
	if _, err := SwishURL(withPhone, 0, "SEK", ""); !errors.Is(err, ErrInvalidTotal) {
		t.Fatalf("zero amount: got %v", err)
	}
}
