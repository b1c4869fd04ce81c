package salesreport_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-insight/internal/salesreport"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{in: 0.005, want: 0.01},
		{in: -0.005, want: -0.01},
		{in: 0.004, want: 0},
		{in: 1.005, want: 1.00},
		{in: 2.675, want: 2.67},
		{in: 1.255, want: 1.25},
		{in: 0.285, want: 0.28},
		{in: 2.345, want: 2.35},
		{in: 0.125, want: 0.13},
		{in: -0.125, want: -0.13},
		{in: -1.005, want: -1.00},
		{in: -1.234, want: -1.23},
		{in: 100.0 * 0.15, want: 15},
		{in: 0.1 + 0.2, want: 0.3},
		{in: 199.999, want: 200},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, salesreport.Round2(tc.in), "Round2(%v)", tc.in)
	}
}

func TestRound2NonFinite(t *testing.T) {
	require.True(t, math.IsNaN(salesreport.Round2(math.NaN())))
	require.True(t, math.IsInf(salesreport.Round2(math.Inf(1)), 1))
}
