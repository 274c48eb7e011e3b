package eodhd

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// apiQuote is the wire shape of the real-time quote endpoint. Close is a
// json.Number-compatible float; EODHD returns the string "NA" for unknown
// tickers, which json decoding surfaces as an unmarshal error handled by the
// caller.
type apiQuote struct {
	Code      string  `json:"code"`
	Close     float64 `json:"close"`
	Timestamp int64   `json:"timestamp"`
}

// apiBar is one end-of-day bar from the /eod endpoint.
type apiBar struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjusted_close"`
	Volume   int64   `json:"volume"`
}

// toDailyClose converts the bar to a domain point. Prices round to six
// decimal places at this boundary; everything downstream stays decimal.
func (b apiBar) toDailyClose() (domain.DailyClose, error) {
	day, err := time.Parse("2006-01-02", b.Date)
	if err != nil {
		return domain.DailyClose{}, err
	}
	return domain.DailyClose{
		Date:  day.UTC(),
		Close: decimal.NewFromFloat(b.Close).Round(6),
	}, nil
}

// apiFundamentals is the subset of the /fundamentals payload the earnings
// refresh consumes.
type apiFundamentals struct {
	Earnings struct {
		History map[string]apiEarningsHistory `json:"History"`
	} `json:"Earnings"`
	Financials struct {
		IncomeStatement struct {
			Quarterly map[string]apiIncome `json:"quarterly"`
			Yearly    map[string]apiIncome `json:"yearly"`
		} `json:"Income_Statement"`
		CashFlow struct {
			Quarterly map[string]apiCashFlow `json:"quarterly"`
			Yearly    map[string]apiCashFlow `json:"yearly"`
		} `json:"Cash_Flow"`
	} `json:"Financials"`
}

type apiEarningsHistory struct {
	ReportDate  string   `json:"reportDate"`
	Date        string   `json:"date"`
	EPSActual   *float64 `json:"epsActual"`
	EPSEstimate *float64 `json:"epsEstimate"`
}

type apiIncome struct {
	Date         string  `json:"date"`
	TotalRevenue *string `json:"totalRevenue"`
	EBITDA       *string `json:"ebitda"`
}

type apiCashFlow struct {
	Date         string  `json:"date"`
	FreeCashFlow *string `json:"freeCashFlow"`
}

// parseMoney converts EODHD's stringly-typed statement figures to decimal.
// Nil, empty, and unparseable values all map to nil.
func parseMoney(s *string) *decimal.Decimal {
	if s == nil || *s == "" {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

func parseFloat(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
