package types

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		scale   int32
		want    MinorUnits
		wantErr bool
	}{
		{name: "whole rials", input: "1000", scale: 0, want: 1000},
		{name: "cents", input: "12.34", scale: 2, want: 1234},
		{name: "short fraction", input: "12.3", scale: 2, want: 1230},
		{name: "trailing zeros", input: "5.000", scale: 0, want: 5},
		{name: "negative", input: "-7.5", scale: 1, want: -75},
		{name: "excess fraction", input: "1.005", scale: 2, wantErr: true},
		{name: "fraction on rials", input: "10.5", scale: 0, wantErr: true},
		{name: "garbage", input: "ten", scale: 0, wantErr: true},
		{name: "empty", input: "  ", scale: 0, wantErr: true},
		{name: "overflow", input: "9223372036854775808", scale: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMinorUnits(tt.input, tt.scale)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinorUnits_Format(t *testing.T) {
	assert.Equal(t, "12.34", MinorUnits(1234).Format(2))
	assert.Equal(t, "-0.05", MinorUnits(-5).Format(2))
	assert.Equal(t, "1000", MinorUnits(1000).Format(0))
	assert.True(t, MinorUnits(1234).Decimal(2).Equal(decimal.RequireFromString("12.34")))
}

func TestMinorUnits_Add(t *testing.T) {
	sum, ok := MinorUnits(40).Add(2)
	assert.True(t, ok)
	assert.Equal(t, MinorUnits(42), sum)

	_, ok = MinorUnits(math.MaxInt64).Add(1)
	assert.False(t, ok)

	_, ok = MinorUnits(math.MinInt64).Add(-1)
	assert.False(t, ok)
}
