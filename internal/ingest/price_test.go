package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"quoteingest/internal/ingest"
)

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want string
	}{
		{150.123449, "150.12"},
		{150.999999, "151.00"},
		{191.5, "191.50"},
		{2, "2.00"},
		{0.1, "0.10"},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, ingest.FormatPrice(tc.in), "input %v", tc.in)
	}
}
