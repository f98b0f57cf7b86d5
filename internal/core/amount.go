// Package core holds the pure computation behind expense splitting: amount
// parsing, share allocation, balance aggregation and settlement. Nothing in
// this package touches I/O or shared state; every function is deterministic
// over its inputs.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidExpression = errors.New("invalid amount expression")
	ErrDivisionByZero    = errors.New("division by zero in amount expression")
)

var hundred = decimal.NewFromInt(100)

// EvaluateAmount parses a total entered in major units and returns the value
// in minor units. The input is a small arithmetic expression: decimal numbers
// combined with + - * / and parentheses ("120+15" -> 13500). Any character
// outside [0-9+-*/().] and whitespace is rejected before evaluation. The
// final value is rounded to whole minor units, half away from zero.
func EvaluateAmount(expr string) (int64, error) {
	p := &amountParser{input: expr}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, p.input[p.pos:])
	}
	return v.Mul(hundred).Round(0).IntPart(), nil
}

// amountParser is a recursive-descent parser over the amount mini-language.
// Addition and subtraction associate left to right; * and / bind tighter.
type amountParser struct {
	input string
	pos   int
}

func (p *amountParser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

func (p *amountParser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, ErrDivisionByZero
			}
			left = left.Div(right)
		default:
			return left, nil
		}
	}
}

func (p *amountParser) parseFactor() (decimal.Decimal, error) {
	p.skipSpace()
	switch p.peek() {
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidExpression)
		}
		p.pos++
		return v, nil
	case '-':
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return v.Neg(), nil
	default:
		return p.parseNumber()
	}
}

func (p *amountParser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	sawDigit := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			sawDigit = true
			p.pos++
			continue
		}
		if c == '.' {
			p.pos++
			continue
		}
		break
	}
	if !sawDigit {
		if p.pos < len(p.input) {
			return decimal.Zero, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, p.input[p.pos])
		}
		return decimal.Zero, fmt.Errorf("%w: unexpected end of input", ErrInvalidExpression)
	}
	v, err := decimal.NewFromString(p.input[start:p.pos])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidExpression, p.input[start:p.pos])
	}
	return v, nil
}

func (p *amountParser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *amountParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// FormatAmount renders a minor-unit amount for display, e.g. 13550 "SEK"
// becomes "135.50 SEK". Used for payment names and notification texts.
func FormatAmount(minor int64, currency string) string {
	neg := minor < 0
	if neg {
		minor = -minor
	}
	s := strconv.FormatInt(minor/100, 10) + "." + fmt.Sprintf("%02d", minor%100)
	if neg {
		s = "-" + s
	}
	return s + " " + strings.ToUpper(currency)
}

// MajorUnits returns the amount in major units as a decimal string without a
// currency suffix ("135.50"). Division by 100 happens only at boundaries like
// this one; the model itself always carries minor units.
func MajorUnits(minor int64) string {
	d := decimal.NewFromInt(minor).Div(hundred)
	return d.StringFixed(2)
}
