package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidTotal        = errors.New("total must be a positive amount in minor units")
	ErrInvalidCurrency     = errors.New("currency must be a three-letter ISO-4217 code")
	ErrNoShares            = errors.New("expense has no shares")
	ErrUnbalancedShares    = errors.New("shares do not sum to zero")
	ErrInvalidPayment      = errors.New("payment must transfer the full total between exactly two users")
	ErrUnknownPayer        = errors.New("payer is not among the participants")
	ErrSamePayerReceiver   = errors.New("payer and receiver must be different users")
	ErrNoPhoneNumber       = errors.New("receiver has no registered phone number")
	ErrUnsupportedCurrency = errors.New("currency not supported by the payment app")
)

type (
	// User is a reference entity owned by the user directory; the expense
	// model never mutates it beyond the phone number.
	User struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		Email       string  `json:"email,omitempty"`
		PhoneNumber *string `json:"phone_number"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Share is a signed allocation of an expense total to one participant,
	// in minor currency units. Positive means the user is owed money,
	// negative means the user owes.
	Share struct {
		ExpenseID int64 `json:"expense_id"`
		UserID    int64 `json:"user_id"`
		Share     int64 `json:"share"`
	}

	// Expense is a cost split or, when IsPayment is set, a direct transfer
	// between two users. Total and all shares are integer minor units.
	Expense struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Total     int64     `json:"total"`
		Currency  string    `json:"currency"`
		CreatedAt time.Time `json:"created_at"`
		PaidBy    User      `json:"paid_by"`
		Category  *Category `json:"category"`
		IsPayment bool      `json:"is_payment"`
		Shares    []Share   `json:"shares"`
	}
)

// Validate checks the structural invariants of an expense: every expense is
// zero-sum across its shares, and a payment is a pure two-party transfer of
// the full total with the payer on the positive side.
func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if e.Total <= 0 {
		return ErrInvalidTotal
	}
	if err := ValidateCurrency(e.Currency); err != nil {
		return err
	}
	if len(e.Shares) == 0 {
		return ErrNoShares
	}

	var sum int64
	for _, s := range e.Shares {
		sum += s.Share
	}
	if sum != 0 {
		return ErrUnbalancedShares
	}

	if e.IsPayment {
		if len(e.Shares) != 2 {
			return ErrInvalidPayment
		}
		a, b := e.Shares[0], e.Shares[1]
		if a.Share != -b.Share || absShare(a.Share) != e.Total {
			return ErrInvalidPayment
		}
		payerHoldsTotal := false
		for _, s := range e.Shares {
			if s.UserID == e.PaidBy.ID && s.Share == e.Total {
				payerHoldsTotal = true
			}
		}
		if !payerHoldsTotal {
			return ErrInvalidPayment
		}
	}

	return nil
}

// ValidateCurrency accepts three uppercase ASCII letters, e.g. "SEK".
func ValidateCurrency(currency string) error {
	if len(currency) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

func absShare(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
