package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNoParticipants     = errors.New("at least one participant required")
	ErrNegativePercentage = errors.New("percentage must not be negative")
	ErrPercentageSum      = errors.New("percentages must sum to exactly 100")
)

// percentageTolerance absorbs representation error from equal splits like
// 100/3 per participant, which cannot sum to exactly 100 at fixed precision.
var percentageTolerance = decimal.New(1, -6)

// Participant is one user's percentage weight in a cost split.
type Participant struct {
	UserID     int64
	Percentage decimal.Decimal
}

// PercentagesFromBoundaries recovers per-user percentages from cumulative
// slider positions. The input holds the boundary after each participant
// except the last; successive differences give the leading percentages and
// the final participant gets the remainder to 100, so the result always sums
// to exactly 100 regardless of rounding drift in the positions.
func PercentagesFromBoundaries(boundaries []decimal.Decimal) []decimal.Decimal {
	percentages := make([]decimal.Decimal, 0, len(boundaries)+1)
	prev := decimal.Zero
	for _, b := range boundaries {
		percentages = append(percentages, b.Sub(prev))
		prev = b
	}
	percentages = append(percentages, hundred.Sub(prev))
	return percentages
}

// EvenPercentages splits 100 into n equal weights, the default split offered
// when a new expense is opened.
func EvenPercentages(n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	percentages := make([]decimal.Decimal, n)
	each := hundred.Div(decimal.NewFromInt(int64(n)))
	for i := range percentages {
		percentages[i] = each
	}
	return percentages
}

// AllocateShares converts a total and a set of percentage weights into
// zero-sum integer shares. Every non-payer owes round(total*pct/100), rounded
// half away from zero per share with no redistribution pass; the payer's
// share is the exact negation of everyone else's, so the expense is always
// zero-sum and the payer absorbs any rounding residue (bounded by one minor
// unit per participant). Payment expenses never go through here.
func AllocateShares(total int64, payerID int64, participants []Participant) ([]Share, error) {
	if total <= 0 {
		return nil, ErrInvalidTotal
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	sum := decimal.Zero
	payerSeen := false
	for _, p := range participants {
		if p.Percentage.IsNegative() {
			return nil, fmt.Errorf("%w: user %d has %s", ErrNegativePercentage, p.UserID, p.Percentage)
		}
		if p.UserID == payerID {
			payerSeen = true
		}
		sum = sum.Add(p.Percentage)
	}
	if !payerSeen {
		return nil, ErrUnknownPayer
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentageTolerance) {
		return nil, fmt.Errorf("%w: got %s", ErrPercentageSum, sum)
	}

	totalDec := decimal.NewFromInt(total)
	shares := make([]Share, len(participants))
	var payerIdx int
	var owedToPayer int64
	for i, p := range participants {
		if p.UserID == payerID {
			payerIdx = i
			continue
		}
		allocated := totalDec.Mul(p.Percentage).Div(hundred).Round(0).IntPart()
		shares[i] = Share{UserID: p.UserID, Share: -allocated}
		owedToPayer += allocated
	}
	shares[payerIdx] = Share{UserID: payerID, Share: owedToPayer}

	return shares, nil
}
