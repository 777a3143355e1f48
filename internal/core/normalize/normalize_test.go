package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "european thousands", in: "1.234,56", want: "1234.56", ok: true},
		{name: "us thousands", in: "1,234.56", want: "1234.56", ok: true},
		{name: "comma decimal only", in: "12,50", want: "12.5", ok: true},
		{name: "dot decimal only", in: "99.90", want: "99.9", ok: true},
		{name: "local currency symbol", in: "S/ 1,250.00", want: "1250", ok: true},
		{name: "dotted local symbol", in: "S/. 15,00", want: "15", ok: true},
		{name: "foreign currency symbol", in: "US$ 3.500,75", want: "3500.75", ok: true},
		{name: "currency code", in: "PEN 10", want: "10", ok: true},
		{name: "negative", in: "-42,10", want: "-42.1", ok: true},
		{name: "inner whitespace", in: " 1 234,00 ", want: "1234", ok: true},
		{name: "two dots", in: "12.3.4", ok: false},
		{name: "two commas", in: "1,234,567", ok: false},
		{name: "letters", in: "abc", ok: false},
		{name: "empty", in: "", ok: false},
		{name: "symbol only", in: "S/", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decimal(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestDecimalLocalesAgree(t *testing.T) {
	a, ok := Decimal("1.234,56")
	require.True(t, ok)
	b, ok := Decimal("1,234.56")
	require.True(t, ok)
	assert.True(t, a.Equal(b))
	assert.Equal(t, "1234.56", a.StringFixed(2))
}

func TestNonNegativePtr(t *testing.T) {
	assert.Nil(t, NonNegativePtr("-1,00"))
	assert.Nil(t, NonNegativePtr("n/a"))
	got := NonNegativePtr("0,00")
	require.NotNil(t, got)
	assert.True(t, got.IsZero())
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{in: "31/12/2024", want: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "2025-01-05", want: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "05-01-2025", want: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "05.01.2025", want: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "05 01 2025", want: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), ok: true},
		{in: " 05/01/2025 ", want: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "31/02/2024", ok: false},
		{in: "2024/12/31", ok: false},
		{in: "5/1/2025", ok: false},
		{in: "yesterday", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Date(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %s", got)
			}
		})
	}
}

func TestText(t *testing.T) {
	in := "FACTURA\r\nRUC:\t20601234565   \n\n\n\n-----\nTOTAL  S/ 10.00  "
	assert.Equal(t, "FACTURA\nRUC: 20601234565\n\nTOTAL S/ 10.00", Text(in))
	assert.Equal(t, "", Text(""))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "fecha de emision", Fold("Fecha de Emisión"))
	assert.Equal(t, "dolares americanos", Fold("DÓLARES Americanos"))
	assert.Equal(t, "n° 123", Fold("N° 123"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "emi", Truncate("emisión", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
