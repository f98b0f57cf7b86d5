package core

// Balances maps currency -> user -> net amount in minor units. It is derived
// state: recomputed from scratch on every read by folding the full expense
// collection, never maintained incrementally. Insertion order of currencies
// and users is preserved so that rendered views are stable across reads of
// the same snapshot.
type Balances struct {
	currencies []string
	perCurrency map[string]*currencyBalance
}

type currencyBalance struct {
	users []int64
	net   map[int64]int64
}

// BalanceEntry is one (currency, user, balance) triple of the flattened
// settle-up view. The sign is the counterparty's own net position: negative
// means they owe, positive means they are owed.
type BalanceEntry struct {
	Currency string `json:"currency"`
	UserID   int64  `json:"user_id"`
	Balance  int64  `json:"balance"`
}

// AggregateBalances folds an expense collection into per-currency, per-user
// net balances. The fold is commutative: shuffling the input does not change
// any balance. Because every expense is itself zero-sum, each currency's
// balances sum to zero.
func AggregateBalances(expenses []Expense) Balances {
	b := Balances{perCurrency: make(map[string]*currencyBalance)}
	for _, e := range expenses {
		for _, s := range e.Shares {
			b.add(e.Currency, s.UserID, s.Share)
		}
	}
	return b
}

func (b *Balances) add(currency string, userID, delta int64) {
	cb, ok := b.perCurrency[currency]
	if !ok {
		cb = &currencyBalance{net: make(map[int64]int64)}
		b.perCurrency[currency] = cb
		b.currencies = append(b.currencies, currency)
	}
	if _, ok := cb.net[userID]; !ok {
		cb.users = append(cb.users, userID)
	}
	cb.net[userID] += delta
}

// Amount returns one user's net balance in a currency, zero when the user has
// no shares there.
func (b Balances) Amount(currency string, userID int64) int64 {
	if cb, ok := b.perCurrency[currency]; ok {
		return cb.net[userID]
	}
	return 0
}

// Currencies lists the currencies seen in the snapshot, in first appearance
// order.
func (b Balances) Currencies() []string {
	return b.currencies
}

// ForUser returns the caller's own net position per currency: positive means
// the caller is owed money, negative means the caller owes.
func (b Balances) ForUser(userID int64) map[string]int64 {
	out := make(map[string]int64, len(b.currencies))
	for _, c := range b.currencies {
		out[c] = b.perCurrency[c].net[userID]
	}
	return out
}

// Entries flattens every (currency, user, balance) triple, including settled
// and caller-side ones. Used by the balance API.
func (b Balances) Entries() []BalanceEntry {
	var out []BalanceEntry
	for _, c := range b.currencies {
		cb := b.perCurrency[c]
		for _, u := range cb.users {
			out = append(out, BalanceEntry{Currency: c, UserID: u, Balance: cb.net[u]})
		}
	}
	return out
}

// Flatten derives the actionable settle-up view for one caller: every
// non-zero counterparty balance, excluding the caller's own entries, ordered
// by currency then first appearance. A strictly zero balance is a settled
// relationship and is filtered out.
func (b Balances) Flatten(callerID int64) []BalanceEntry {
	var out []BalanceEntry
	for _, e := range b.Entries() {
		if e.UserID == callerID || e.Balance == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}
