// Package eodhd is the REST client for the EODHD market-data API, which
// provides real-time quotes, end-of-day price history, and fundamentals.
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// Client talks to the EODHD REST API. It implements domain.MarketData.
// Transport and provider failures are returned as errors; the service layer
// above translates them into the "price unavailable" value.
type Client struct {
	baseURL    string
	apiToken   string
	exchange   string
	httpClient *http.Client
}

// New creates an EODHD client.
//
// baseURL is the API root, e.g. "https://eodhd.com/api". exchange is the
// suffix appended to bare tickers ("US" turns AAPL into AAPL.US); tickers
// that already carry a suffix are passed through unchanged.
func New(baseURL, apiToken, exchange string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		exchange: exchange,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// symbol qualifies a bare ticker with the configured exchange suffix.
func (c *Client) symbol(ticker string) string {
	if strings.Contains(ticker, ".") || c.exchange == "" {
		return strings.ToUpper(ticker)
	}
	return strings.ToUpper(ticker) + "." + c.exchange
}

// Quote returns the most recent close for a single ticker.
func (c *Client) Quote(ctx context.Context, ticker string) (decimal.Decimal, error) {
	path := fmt.Sprintf("/real-time/%s?fmt=json", url.PathEscape(c.symbol(ticker)))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("eodhd: quote %s: %w", ticker, err)
	}

	var q apiQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return decimal.Zero, fmt.Errorf("eodhd: decode quote %s: %w", ticker, err)
	}
	if q.Close <= 0 {
		return decimal.Zero, fmt.Errorf("eodhd: quote %s: empty close: %w", ticker, domain.ErrNotFound)
	}

	return decimal.NewFromFloat(q.Close).Round(6), nil
}

// Quotes returns the most recent closes for several tickers in one request.
// Tickers the provider does not know are omitted from the result map.
func (c *Client) Quotes(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	if len(tickers) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	// The real-time endpoint takes one symbol in the path and the rest in
	// the "s" parameter. Keep the qualified-symbol -> requested-ticker
	// mapping so responses key back to what the caller asked with; a dotted
	// ticker like BRK.B is never suffixed, so stripping at the last dot
	// would mangle it.
	symbols := make([]string, 0, len(tickers))
	requested := make(map[string]string, len(tickers))
	for _, t := range tickers {
		sym := c.symbol(t)
		symbols = append(symbols, sym)
		requested[sym] = strings.ToUpper(t)
	}
	params := url.Values{}
	params.Set("fmt", "json")
	if len(symbols) > 1 {
		params.Set("s", strings.Join(symbols[1:], ","))
	}
	path := fmt.Sprintf("/real-time/%s?%s", url.PathEscape(symbols[0]), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("eodhd: batch quote: %w", err)
	}

	// With a single symbol the endpoint returns an object, otherwise an
	// array.
	var quotes []apiQuote
	if len(symbols) == 1 {
		var q apiQuote
		if err := json.Unmarshal(body, &q); err != nil {
			return nil, fmt.Errorf("eodhd: decode batch quote: %w", err)
		}
		quotes = []apiQuote{q}
	} else if err := json.Unmarshal(body, &quotes); err != nil {
		return nil, fmt.Errorf("eodhd: decode batch quote: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		if q.Close <= 0 {
			continue
		}
		ticker, ok := requested[strings.ToUpper(q.Code)]
		if !ok {
			continue
		}
		result[ticker] = decimal.NewFromFloat(q.Close).Round(6)
	}
	return result, nil
}

// DailySeries returns daily closes for [from, to] inclusive, ascending by
// date.
func (c *Client) DailySeries(ctx context.Context, ticker string, from, to time.Time) ([]domain.DailyClose, error) {
	params := url.Values{}
	params.Set("fmt", "json")
	params.Set("period", "d")
	params.Set("from", from.UTC().Format("2006-01-02"))
	params.Set("to", to.UTC().Format("2006-01-02"))
	path := fmt.Sprintf("/eod/%s?%s", url.PathEscape(c.symbol(ticker)), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("eodhd: daily series %s: %w", ticker, err)
	}

	var bars []apiBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("eodhd: decode daily series %s: %w", ticker, err)
	}

	series := make([]domain.DailyClose, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		point, err := bar.toDailyClose()
		if err != nil {
			continue
		}
		series = append(series, point)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	return series, nil
}

// Fundamentals returns the earnings-relevant slice of a ticker's fundamentals:
// quarterly and annual periods with consensus EPS estimates, actual EPS, and
// revenue/EBITDA/FCF from the statements.
func (c *Client) Fundamentals(ctx context.Context, ticker string) (domain.FundamentalsReport, error) {
	params := url.Values{}
	params.Set("fmt", "json")
	params.Set("filter", "Earnings,Financials")
	path := fmt.Sprintf("/fundamentals/%s?%s", url.PathEscape(c.symbol(ticker)), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.FundamentalsReport{}, fmt.Errorf("eodhd: fundamentals %s: %w", ticker, err)
	}

	var raw apiFundamentals
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.FundamentalsReport{}, fmt.Errorf("eodhd: decode fundamentals %s: %w", ticker, err)
	}

	return domain.FundamentalsReport{
		Quarterly: c.buildPeriods(raw, true),
		Annual:    c.buildPeriods(raw, false),
	}, nil
}

// buildPeriods merges earnings history and statement maps into per-period
// records keyed by fiscal quarter ("2024-Q4") or fiscal year ("2024").
func (c *Client) buildPeriods(raw apiFundamentals, quarterly bool) []domain.EarningsPeriod {
	income := raw.Financials.IncomeStatement.Yearly
	cashflow := raw.Financials.CashFlow.Yearly
	if quarterly {
		income = raw.Financials.IncomeStatement.Quarterly
		cashflow = raw.Financials.CashFlow.Quarterly
	}

	byKey := make(map[string]*domain.EarningsPeriod)
	get := func(dateStr string) *domain.EarningsPeriod {
		end, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil
		}
		end = end.UTC()
		key := FiscalLabel(end, quarterly)
		p, ok := byKey[key]
		if !ok {
			p = &domain.EarningsPeriod{FiscalQuarter: key, PeriodEndDate: &end}
			byKey[key] = p
		}
		return p
	}

	for dateStr, inc := range income {
		if p := get(dateStr); p != nil {
			p.Revenue = parseMoney(inc.TotalRevenue)
			p.EBITDA = parseMoney(inc.EBITDA)
		}
	}
	for dateStr, cf := range cashflow {
		if p := get(dateStr); p != nil {
			p.FCF = parseMoney(cf.FreeCashFlow)
		}
	}
	// EPS history is reported per fiscal period end date regardless of the
	// quarterly/annual split; attach only where the statements created a
	// period so annual records do not pick up quarterly EPS.
	for _, hist := range raw.Earnings.History {
		end, err := time.Parse("2006-01-02", hist.Date)
		if err != nil {
			continue
		}
		key := FiscalLabel(end.UTC(), quarterly)
		if p, ok := byKey[key]; ok && quarterly {
			p.EPSActual = parseFloat(hist.EPSActual)
			p.EPSEstimate = parseFloat(hist.EPSEstimate)
		}
	}

	periods := make([]domain.EarningsPeriod, 0, len(byKey))
	for _, p := range byKey {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].FiscalQuarter > periods[j].FiscalQuarter
	})
	return periods
}

// FiscalLabel derives the fiscal-period key from a period end date:
// "2024-Q4" for quarterly periods, "2024" for annual ones.
func FiscalLabel(end time.Time, quarterly bool) string {
	if !quarterly {
		return fmt.Sprintf("%d", end.Year())
	}
	quarter := (int(end.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", end.Year(), quarter)
}

// doGet performs a GET request against the API, injecting the token, and
// returns the raw response body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	fullURL := c.baseURL + path + sep + "api_token=" + url.QueryEscape(c.apiToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("status 404: %w", domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Compile-time interface check.
var _ domain.MarketData = (*Client)(nil)
