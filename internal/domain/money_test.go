package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoneyLine(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		price    string
		expected string
	}{
		{name: "whole numbers", quantity: "100", price: "12.50", expected: "1250"},
		{name: "fractional quantity", quantity: "2.5", price: "3.33", expected: "8.33"},
		{name: "rounds half up", quantity: "0.005", price: "1", expected: "0.01"},
		{name: "three decimal quantity", quantity: "1.333", price: "3", expected: "4"},
		{name: "zero quantity", quantity: "0", price: "99.99", expected: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MoneyLine(decimal.RequireFromString(tc.quantity), decimal.RequireFromString(tc.price))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.expected)),
				"MoneyLine(%s, %s) = %s, want %s", tc.quantity, tc.price, got, tc.expected)
		})
	}
}

func TestMoneyShare(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		percentage string
		expected   string
	}{
		{name: "sixty percent of 100000", total: "100000", percentage: "60", expected: "60000"},
		{name: "forty percent of 100000", total: "100000", percentage: "40", expected: "40000"},
		{name: "fractional percentage", total: "1000", percentage: "33.33", expected: "333.30"},
		{name: "full share", total: "123456.78", percentage: "100", expected: "123456.78"},
		{name: "zero percentage", total: "50000", percentage: "0", expected: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MoneyShare(decimal.RequireFromString(tc.total), decimal.RequireFromString(tc.percentage))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.expected)),
				"MoneyShare(%s, %s) = %s, want %s", tc.total, tc.percentage, got, tc.expected)
		})
	}
}

func TestAvailablePercentage(t *testing.T) {
	dist := func(pct string) AtaDistribution {
		return AtaDistribution{Percentage: decimal.RequireFromString(pct)}
	}

	t.Run("no distributions leaves everything available", func(t *testing.T) {
		got := AvailablePercentage(nil)
		assert.True(t, got.Equal(decimal.NewFromInt(100)))
	})

	t.Run("partial distribution", func(t *testing.T) {
		got := AvailablePercentage([]AtaDistribution{dist("60")})
		assert.True(t, got.Equal(decimal.NewFromInt(40)))
	})

	t.Run("fully distributed", func(t *testing.T) {
		got := AvailablePercentage([]AtaDistribution{dist("60"), dist("40")})
		assert.True(t, got.IsZero())
	})

	t.Run("fractional shares", func(t *testing.T) {
		got := AvailablePercentage([]AtaDistribution{dist("33.33"), dist("33.33")})
		assert.True(t, got.Equal(decimal.RequireFromString("33.34")))
	})
}

func TestAtaReservedValue(t *testing.T) {
	ata := &Ata{
		TotalValue:         decimal.RequireFromString("100000"),
		ReservedPercentage: decimal.RequireFromString("40"),
	}
	assert.True(t, ata.ReservedValue().Equal(decimal.RequireFromString("40000")))
}
