package ledger

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decHundred = decimal.NewFromInt(100)
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// ApplyDerived fills the derived fields of an entry from a mark price.
// With no usable mark or entry price the fields are left as loaded; the
// analytics side normally supplies them and 0 is an acceptable default.
func ApplyDerived(e *Entry, markPrice float64) {
	if e == nil || markPrice <= 0 || e.Price <= 0 {
		return
	}
	entry := decFromFloat(e.Price)
	mark := decFromFloat(markPrice)
	amount := decFromFloat(e.Amount)
	lev := decFromFloat(e.Leverage)
	if lev.LessThanOrEqual(decimal.Zero) {
		lev = decOne
	}

	diff := mark.Sub(entry)
	if e.Side == SideShort {
		diff = entry.Sub(mark)
	}
	e.PNL = decToFloat(diff.Mul(amount))
	e.PNLPercent = decToFloat(diff.Div(entry).Mul(lev).Mul(decHundred))
	e.LiquidationPrice = liquidationPrice(entry, lev, e.Side)
	e.PLSAmount = stopLegAmount(e, entry, amount)
}

// liquidationPrice approximates the isolated-margin liquidation level:
// entry * (1 ∓ 1/leverage). Leverage 1 shorts have no finite level; 0 is
// reported then.
func liquidationPrice(entry, lev decimal.Decimal, side Side) float64 {
	if entry.LessThanOrEqual(decimal.Zero) || lev.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	step := decOne.Div(lev)
	if side == SideShort {
		return decToFloat(entry.Mul(decOne.Add(step)))
	}
	out := entry.Mul(decOne.Sub(step))
	if out.LessThan(decimal.Zero) {
		return 0
	}
	return decToFloat(out)
}

// stopLegAmount is the quote-currency P/L of the stop-loss leg: what the
// entry surrenders if the stop fires. 0 when no stop is set.
func stopLegAmount(e *Entry, entry, amount decimal.Decimal) float64 {
	if e.StopLoss <= 0 {
		return 0
	}
	stop := decFromFloat(e.StopLoss)
	diff := stop.Sub(entry)
	if e.Side == SideShort {
		diff = entry.Sub(stop)
	}
	return decToFloat(diff.Mul(amount))
}
