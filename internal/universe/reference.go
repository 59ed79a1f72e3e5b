package universe

// Reference is one entry of the curated symbol universe.
type Reference struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Sector string `yaml:"sector" json:"sector"`
}

// DefaultReferences is the built-in universe of US large caps, roughly ordered
// by market capitalisation so truncation keeps the largest names.
var DefaultReferences = []Reference{
	{"AAPL", "Technology"},
	{"MSFT", "Technology"},
	{"NVDA", "Technology"},
	{"GOOGL", "Communication Services"},
	{"AMZN", "Consumer Cyclical"},
	{"META", "Communication Services"},
	{"BRK.B", "Financial Services"},
	{"AVGO", "Technology"},
	{"TSLA", "Consumer Cyclical"},
	{"LLY", "Healthcare"},
	{"JPM", "Financial Services"},
	{"V", "Financial Services"},
	{"UNH", "Healthcare"},
	{"XOM", "Energy"},
	{"MA", "Financial Services"},
	{"JNJ", "Healthcare"},
	{"PG", "Consumer Defensive"},
	{"HD", "Consumer Cyclical"},
	{"COST", "Consumer Defensive"},
	{"ORCL", "Technology"},
	{"ABBV", "Healthcare"},
	{"MRK", "Healthcare"},
	{"CVX", "Energy"},
	{"WMT", "Consumer Defensive"},
	{"KO", "Consumer Defensive"},
	{"PEP", "Consumer Defensive"},
	{"BAC", "Financial Services"},
	{"CRM", "Technology"},
	{"ADBE", "Technology"},
	{"AMD", "Technology"},
	{"NFLX", "Communication Services"},
	{"TMO", "Healthcare"},
	{"MCD", "Consumer Cyclical"},
	{"CSCO", "Technology"},
	{"ACN", "Technology"},
	{"LIN", "Basic Materials"},
	{"ABT", "Healthcare"},
	{"WFC", "Financial Services"},
	{"DIS", "Communication Services"},
	{"INTU", "Technology"},
	{"CAT", "Industrials"},
	{"GE", "Industrials"},
	{"VZ", "Communication Services"},
	{"QCOM", "Technology"},
	{"IBM", "Technology"},
	{"UNP", "Industrials"},
	{"NEE", "Utilities"},
	{"HON", "Industrials"},
	{"COP", "Energy"},
	{"AMGN", "Healthcare"},
	{"SPGI", "Financial Services"},
	{"PLD", "Real Estate"},
	{"SO", "Utilities"},
	{"DUK", "Utilities"},
	{"NEM", "Basic Materials"},
	{"AMT", "Real Estate"},
}
