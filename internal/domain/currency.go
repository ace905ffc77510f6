package domain

// Currency codes accepted by the platform. Units carry their own currency;
// the service never converts between them.
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)
