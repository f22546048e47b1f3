package entry

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
)

const DefaultCurrency = "XAF"

// Options selects between the strict and tolerant parsing variants.
// Both accept either reference parameter name and default the
// currency; strict mode additionally rejects malformed currency
// codes.
type Options struct {
	Strict bool
}

// Parse derives the immutable entry parameters from the invocation
// query. It is a pure function: no side effects, never panics. A
// *models.EntryError result is a display branch for the caller, not a
// crash.
func Parse(q url.Values, opts Options) (models.EntryParameters, error) {
	var p models.EntryParameters

	rawAmount := strings.TrimSpace(q.Get("amount"))
	if rawAmount == "" {
		return p, &models.EntryError{Field: "amount", Detail: "is missing"}
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return p, &models.EntryError{Field: "amount", Detail: "is not a number"}
	}
	if !amount.IsPositive() {
		return p, &models.EntryError{Field: "amount", Detail: "must be greater than zero"}
	}

	currency := strings.TrimSpace(q.Get("currency"))
	if currency == "" {
		currency = DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if opts.Strict && len(currency) != 3 {
		return p, &models.EntryError{Field: "currency", Detail: "is not a currency code"}
	}

	// "order_id" is the legacy parameter name still emitted by older
	// merchant plugins.
	reference := strings.TrimSpace(q.Get("reference"))
	if reference == "" {
		reference = strings.TrimSpace(q.Get("order_id"))
	}
	if reference == "" {
		return p, &models.EntryError{Field: "reference", Detail: "is missing"}
	}

	// url.Values is already percent-decoded once by the query parser.
	// Decoding again would mangle destinations whose own query string
	// carries escapes.
	returnURL := strings.TrimSpace(q.Get("return_url"))
	if returnURL == "" {
		return p, &models.EntryError{Field: "return_url", Detail: "is missing"}
	}

	p.Amount = amount
	p.Currency = currency
	p.Reference = reference
	p.ReturnURL = returnURL
	return p, nil
}
