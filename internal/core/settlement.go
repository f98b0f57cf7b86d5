package core

import (
	"net/url"
	"time"
)

// SwishCurrency is the only currency the Swish deep link accepts.
const SwishCurrency = "SEK"

// SettlementSuggestion pre-fills the settle-up form for a selected balance
// entry: whoever is in deficit is the suggested payer and the magnitude is
// the outstanding balance. Both are editable before submission, so a partial
// settlement is a valid payment too.
type SettlementSuggestion struct {
	PayerID    int64  `json:"payer_id"`
	ReceiverID int64  `json:"receiver_id"`
	Total      int64  `json:"total"`
	Currency   string `json:"currency"`
}

// SuggestSettlement interprets a counterparty balance entry from the caller's
// viewpoint. A negative counterparty balance means the counterparty owes and
// should pay the caller; a positive one means the caller owes them.
func SuggestSettlement(entry BalanceEntry, callerID int64) SettlementSuggestion {
	s := SettlementSuggestion{Currency: entry.Currency, Total: entry.Balance}
	if entry.Balance < 0 {
		s.PayerID = entry.UserID
		s.ReceiverID = callerID
		s.Total = -entry.Balance
	} else {
		s.PayerID = callerID
		s.ReceiverID = entry.UserID
	}
	return s
}

// NewPayment constructs the payment expense that settles a balance: a pure
// two-share transfer with the payer positive and the receiver negative, so
// that folding it drives the pairwise balance toward zero. The display name
// is generated from the parties and the amount.
func NewPayment(payer, receiver User, total int64, currency string, createdAt time.Time) (Expense, error) {
	if total <= 0 {
		return Expense{}, ErrInvalidTotal
	}
	if payer.ID == receiver.ID {
		return Expense{}, ErrSamePayerReceiver
	}
	if err := ValidateCurrency(currency); err != nil {
		return Expense{}, err
	}

	return Expense{
		Name:      payer.Name + " payed " + FormatAmount(total, currency) + " to " + receiver.Name,
		Total:     total,
		Currency:  currency,
		CreatedAt: createdAt,
		PaidBy:    payer,
		IsPayment: true,
		Shares: []Share{
			{UserID: payer.ID, Share: total},
			{UserID: receiver.ID, Share: -total},
		},
	}, nil
}

// SwishURL builds the deep link that opens the Swish app with the transfer
// pre-filled. It needs the receiver's phone number and only supports SEK;
// callers treat a failure here as informational, the payment record is
// registered either way.
func SwishURL(receiver User, total int64, currency, message string) (string, error) {
	if receiver.PhoneNumber == nil || *receiver.PhoneNumber == "" {
		return "", ErrNoPhoneNumber
	}
	if currency != SwishCurrency {
		return "", ErrUnsupportedCurrency
	}
	if total <= 0 {
		return "", ErrInvalidTotal
	}

	q := url.Values{}
	q.Set("sw", *receiver.PhoneNumber)
	q.Set("amt", MajorUnits(total))
	q.Set("cur", SwishCurrency)
	q.Set("msg", message)
	q.Set("src", "qr")
	return "https://app.swish.nu/1/p/sw/?" + q.Encode(), nil
}
