package domain

import "github.com/shopspring/decimal"

// Monetary amounts are kept as exact decimals end to end; rounding to cents
// happens only when a derived value is materialized. Quantities carry three
// decimal places to support fractional units (kg, m3).

// HundredPercent is the allocation ceiling for Ata distributions.
var HundredPercent = decimal.NewFromInt(100)

// MoneyLine computes quantity x unitPrice rounded to cents.
func MoneyLine(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// MoneyShare computes total x percentage / 100 rounded to cents.
func MoneyShare(total, percentage decimal.Decimal) decimal.Decimal {
	return total.Mul(percentage).Div(HundredPercent).Round(2)
}

// DistributedPercentage sums the percentage of every distribution.
func DistributedPercentage(distributions []AtaDistribution) decimal.Decimal {
	sum := decimal.Zero
	for i := range distributions {
		sum = sum.Add(distributions[i].Percentage)
	}
	return sum
}

// AvailablePercentage returns the share of an Ata not yet distributed.
func AvailablePercentage(distributions []AtaDistribution) decimal.Decimal {
	return HundredPercent.Sub(DistributedPercentage(distributions))
}
