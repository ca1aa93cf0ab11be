package i18n

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestT(t *testing.T) {
	tests := []struct {
		name string
		id   string
		lang string
		data map[string]interface{}
		want string
	}{
		{name: "english", id: "titleBond", lang: "en", want: "Start staking"},
		{name: "accept language header", id: "titleBond", lang: "ru-RU,ru;q=0.5", want: "Начать стейкинг"},
		{name: "unknown language", id: "titleBond", lang: "unknownLang", want: "Start staking"},
		{name: "template", id: "titleUnknown", lang: "en", data: map[string]interface{}{"Section": "democracy", "Method": "vote"}, want: "Unknown democracy: vote"},
		{name: "missing message", id: "noSuchMessage", lang: "en", want: "noSuchMessage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, T(tt.lang, C{MessageID: tt.id, TemplateData: tt.data}))
		})
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		want   string
	}{
		{name: "zero", amount: 0, want: "0 DOT"},
		{name: "one", amount: 10_000_000_000, want: "1 DOT"},
		{name: "fraction", amount: 15_000_000_000, want: "1.5 DOT"},
		{name: "three significant digits", amount: 12_490_000_000, want: "1.24 DOT"},
		{name: "grouped", amount: 123_456_789_000_000_000, want: "12 345 678 DOT"},
		{name: "dust", amount: 1_234, want: "0.000000123 DOT"},
		{name: "negative", amount: -330_000_000_000_000, want: "-33 000 DOT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatBalance(decimal.NewFromInt(tt.amount), 10, "DOT"))
		})
	}
}
