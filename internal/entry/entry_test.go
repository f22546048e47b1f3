package entry_test

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/entry"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
)

func query(pairs map[string]string) url.Values {
	q := url.Values{}
	for k, v := range pairs {
		q.Set(k, v)
	}
	return q
}

func TestParse_ValidLink(t *testing.T) {
	// Built from the raw invocation query the way the HTTP layer does,
	// so the values arrive exactly once-decoded.
	q, err := url.ParseQuery("amount=2000&currency=xaf&reference=WC-1&return_url=https%3A%2F%2Fshop%2Fdone")
	require.NoError(t, err)

	p, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)
	require.True(t, p.Amount.Equal(decimal.NewFromInt(2000)))
	require.Equal(t, "XAF", p.Currency)
	require.Equal(t, "WC-1", p.Reference)
	require.Equal(t, "https://shop/done", p.ReturnURL)
}

func TestParse_ReturnURLDecodedExactlyOnce(t *testing.T) {
	// The destination's own query carries a %2B escape. The query
	// parser strips the outer encoding layer; a second decode would
	// corrupt the token.
	q, err := url.ParseQuery("amount=2000&reference=WC-1&return_url=" +
		url.QueryEscape("https://shop/done?token=a%2Bb"))
	require.NoError(t, err)

	p, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)
	require.Equal(t, "https://shop/done?token=a%2Bb", p.ReturnURL)
}

func TestParse_CurrencyDefaultsToXAF(t *testing.T) {
	q := query(map[string]string{
		"amount":     "1500.50",
		"reference":  "WC-2",
		"return_url": "https://shop/done",
	})

	p, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)
	require.Equal(t, "XAF", p.Currency)
}

func TestParse_LegacyOrderIDAlias(t *testing.T) {
	q := query(map[string]string{
		"amount":     "2000",
		"order_id":   "WC-3",
		"return_url": "https://shop/done",
	})

	p, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)
	require.Equal(t, "WC-3", p.Reference)
}

func TestParse_ReferenceWinsOverAlias(t *testing.T) {
	q := query(map[string]string{
		"amount":     "2000",
		"reference":  "REF-1",
		"order_id":   "WC-3",
		"return_url": "https://shop/done",
	})

	p, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)
	require.Equal(t, "REF-1", p.Reference)
}

func TestParse_EntryErrors(t *testing.T) {
	tests := []struct {
		name  string
		query map[string]string
		field string
	}{
		{"missing amount", map[string]string{"reference": "WC-1", "return_url": "https://shop/done"}, "amount"},
		{"zero amount", map[string]string{"amount": "0", "reference": "WC-1", "return_url": "https://shop/done"}, "amount"},
		{"negative amount", map[string]string{"amount": "-5", "reference": "WC-1", "return_url": "https://shop/done"}, "amount"},
		{"non-numeric amount", map[string]string{"amount": "abc", "reference": "WC-1", "return_url": "https://shop/done"}, "amount"},
		{"missing reference", map[string]string{"amount": "2000", "return_url": "https://shop/done"}, "reference"},
		{"missing return url", map[string]string{"amount": "2000", "reference": "WC-1"}, "return_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entry.Parse(query(tt.query), entry.Options{})
			require.Error(t, err)

			var entryErr *models.EntryError
			require.ErrorAs(t, err, &entryErr)
			require.Equal(t, tt.field, entryErr.Field)
		})
	}
}

func TestParse_StrictRejectsBadCurrency(t *testing.T) {
	q := query(map[string]string{
		"amount":     "2000",
		"currency":   "FRANCS",
		"reference":  "WC-1",
		"return_url": "https://shop/done",
	})

	_, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)

	_, err = entry.Parse(q, entry.Options{Strict: true})
	var entryErr *models.EntryError
	require.ErrorAs(t, err, &entryErr)
	require.Equal(t, "currency", entryErr.Field)
}

func TestParse_IsPure(t *testing.T) {
	q := query(map[string]string{
		"amount":     "2000",
		"reference":  "WC-1",
		"return_url": "https://shop/done",
	})

	first, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)
	second, err := entry.Parse(q, entry.Options{})
	require.NoError(t, err)
	require.Equal(t, first, second)
}
