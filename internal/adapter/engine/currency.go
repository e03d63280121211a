package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"omnisearch/internal/domain"
)

// usdRates is the static conversion table, expressed as units per USD.
// Good enough for an offline ballpark answer; not a market data feed.
var usdRates = map[string]float64{
	"usd": 1.0,
	"eur": 0.92,
	"gbp": 0.79,
	"jpy": 149.50,
	"chf": 0.88,
	"cad": 1.36,
	"aud": 1.52,
	"cny": 7.24,
	"inr": 83.10,
	"krw": 1330.0,
	"sek": 10.45,
	"nok": 10.60,
	"pln": 3.98,
	"czk": 23.20,
	"brl": 4.97,
	"mxn": 17.10,
}

// Currency converts between currencies without touching the network. A
// query that does not look like a conversion yields no results rather than
// a failure.
type Currency struct {
	desc domain.Descriptor
}

// NewCurrency creates the adapter.
func NewCurrency(desc domain.Descriptor) *Currency {
	desc.Kind = domain.KindOffline
	return &Currency{desc: desc}
}

func (c *Currency) Descriptor() domain.Descriptor { return c.desc }

// conversion is the parsed request, carried through the offline round trip.
type conversion struct {
	Amount float64 `json:"amount"`
	From   string  `json:"from"`
	To     string  `json:"to"`
}

func (c *Currency) BuildRequest(q domain.Query, _ string) (*domain.RequestSpec, error) {
	conv, ok := parseConversion(q.Normalized())
	if !ok {
		return &domain.RequestSpec{}, nil
	}
	body, err := json.Marshal(conv)
	if err != nil {
		return nil, domain.WrapOp("currency", err)
	}
	return &domain.RequestSpec{Body: body}, nil
}

func (c *Currency) ParseResponse(raw *domain.RawResponse) ([]domain.Result, error) {
	if len(raw.Body) == 0 {
		return nil, nil
	}
	var conv conversion
	if err := json.Unmarshal(raw.Body, &conv); err != nil {
		return nil, domain.WrapOp("currency", domain.ErrParse)
	}

	fromRate, ok := usdRates[conv.From]
	if !ok {
		return nil, nil
	}
	toRate, ok := usdRates[conv.To]
	if !ok {
		return nil, nil
	}

	converted := conv.Amount / fromRate * toRate
	rate := toRate / fromRate
	from := strings.ToUpper(conv.From)
	to := strings.ToUpper(conv.To)

	return []domain.Result{&domain.KeyValue{
		Meta: domain.Meta{
			Title:    fmt.Sprintf("%s %s = %s %s", trimFloat(conv.Amount), from, trimFloat(converted), to),
			Template: "currency",
		},
		Pairs: []domain.KV{
			{Key: "amount", Value: trimFloat(conv.Amount) + " " + from},
			{Key: "converted", Value: trimFloat(converted) + " " + to},
			{Key: "rate", Value: fmt.Sprintf("1 %s = %s %s", from, trimFloat(rate), to)},
		},
	}}, nil
}

// parseConversion recognizes "120 usd to eur" and "120 usd in eur".
func parseConversion(text string) (conversion, bool) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) != 4 {
		return conversion{}, false
	}
	if fields[2] != "to" && fields[2] != "in" {
		return conversion{}, false
	}
	amount, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || amount < 0 {
		return conversion{}, false
	}
	from, to := fields[1], fields[3]
	if len(from) != 3 || len(to) != 3 {
		return conversion{}, false
	}
	return conversion{Amount: amount, From: from, To: to}, true
}

func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
