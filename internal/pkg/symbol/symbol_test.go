package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BTC/USDT", "BTC/USDT"},
		{"btc/usdt", "BTC/USDT"},
		{"BTCUSDT", "BTC/USDT"},
		{"ethusdc", "ETH/USDC"},
		{"BTC/USDT:USDT", "BTC/USDT"},
		{" sol/usdt ", "SOL/USDT"},
		{"USDT", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{"btc/usdt", "BTCUSDT", "weird-name", "", "eth/usdt"})
	assert.Equal(t, []string{"BTC/USDT", "WEIRD-NAME", "ETH/USDT"}, got)
}
