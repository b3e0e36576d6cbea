package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kisanbazaar/pkg/money"
)

func TestFormatUsesRupeeSymbol(t *testing.T) {
	s := money.Format(70)
	assert.Contains(t, s, "₹")
	assert.Contains(t, s, "70")
}

func TestFormatInFallsBack(t *testing.T) {
	assert.Contains(t, money.FormatIn("USD", 5), "5")
	assert.Equal(t, money.Format(12), money.FormatIn("not-a-code", 12))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(7000), money.MinorUnits(70))
	assert.Equal(t, int64(1999), money.MinorUnits(19.99))
	assert.Equal(t, 70.0, money.FromMinorUnits(7000))
}
