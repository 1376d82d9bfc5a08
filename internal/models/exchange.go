package models

import "strings"

// Exchange is one tracked stock exchange.
type Exchange struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// exchangeRegistry lists the tracked exchanges in export order. The order is
// significant: export batches are formed from this sequence.
var exchangeRegistry = []Exchange{
	{Code: "bse", Name: "Botswana Stock Exchange"},
	{Code: "brvm", Name: "Bourse Régionale des Valeurs Mobilières"},
	{Code: "gse", Name: "Ghana Stock Exchange"},
	{Code: "jse", Name: "Johannesburg Stock Exchange"},
	{Code: "luse", Name: "Lusaka Securities Exchange"},
	{Code: "mse", Name: "Malawi Stock Exchange"},
	{Code: "nse", Name: "Nairobi Securities Exchange"},
	{Code: "ngx", Name: "Nigerian Stock Exchange"},
	{Code: "use", Name: "Uganda Securities Exchange"},
	{Code: "zse", Name: "Zimbabwe Stock Exchange"},
}

// Exchanges returns the tracked exchanges in export order.
func Exchanges() []Exchange {
	out := make([]Exchange, len(exchangeRegistry))
	copy(out, exchangeRegistry)
	return out
}

// FindExchange looks up an exchange by code, case-insensitively.
func FindExchange(code string) (Exchange, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, ex := range exchangeRegistry {
		if ex.Code == code {
			return ex, true
		}
	}
	return Exchange{}, false
}

// IsValidExchange reports whether code names a tracked exchange.
func IsValidExchange(code string) bool {
	_, ok := FindExchange(code)
	return ok
}
