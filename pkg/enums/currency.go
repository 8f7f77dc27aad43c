package enums

// Currency is the crypto asset a buyer pays in.
type Currency string

const (
	CurrencyLTC  Currency = "LTC"
	CurrencyBTC  Currency = "BTC"
	CurrencyDOGE Currency = "DOGE"
	CurrencyDASH Currency = "DASH"
)

var currencies = newValueSet("currency", true, CurrencyLTC, CurrencyBTC, CurrencyDOGE, CurrencyDASH)

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return currencies.contains(c) }

// ParseCurrency accepts a ticker in any case.
func ParseCurrency(value string) (Currency, error) {
	return currencies.parse(value)
}
