// Package edgar implements the SEC EDGAR document source: ticker to CIK
// resolution, filing discovery through the submissions API, and primary
// document retrieval.
package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/finsight-ai/finsight/domain/corpus"
)

const (
	defaultBaseURL = "https://www.sec.gov"
	defaultDataURL = "https://data.sec.gov"
	defaultTimeout = 30 * time.Second

	// SEC fair-access policy allows at most 10 requests per second.
	defaultRatePerSecond = 10

	tickerMapPath   = "/files/company_tickers.json"
	submissionsPath = "/submissions/CIK%s.json"
	archivePath     = "/Archives/edgar/data/%s/%s/%s"
)

// ErrTickerNotFound indicates the registry has no company for a ticker.
var ErrTickerNotFound = errors.New("ticker not found in EDGAR registry")

// ErrUserAgentRequired indicates a missing User-Agent. SEC rejects
// anonymous automated traffic, so the client refuses to start without one.
var ErrUserAgentRequired = errors.New("edgar client requires a User-Agent")

// Client talks to SEC EDGAR. All requests carry the configured
// User-Agent and pass through a shared rate limiter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	dataURL    string
	userAgent  string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client, e.g. one with a caching transport.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(e *Client) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithBaseURL overrides the www.sec.gov base URL. Used in tests.
func WithBaseURL(u string) ClientOption {
	return func(e *Client) {
		if u != "" {
			e.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithDataURL overrides the data.sec.gov base URL. Used in tests.
func WithDataURL(u string) ClientOption {
	return func(e *Client) {
		if u != "" {
			e.dataURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithRateLimit sets the request rate in requests per second. Values
// <= 0 disable limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(e *Client) {
		if perSecond <= 0 {
			e.limiter = nil
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(e *Client) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewClient creates an EDGAR client. userAgent must identify the caller
// per SEC policy, e.g. "finsight admin@example.com".
func NewClient(userAgent string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, ErrUserAgentRequired
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		dataURL:    defaultDataURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Limit(defaultRatePerSecond), 1),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// tickerEntry is one row of company_tickers.json. The file is an object
// keyed by arbitrary numeric strings.
type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Lookup resolves a ticker to its registrant via the SEC ticker map.
func (c *Client) Lookup(ctx context.Context, ticker string) (corpus.Registrant, error) {
	ticker = corpus.NormalizeTicker(ticker)

	body, err := c.get(ctx, c.baseURL+tickerMapPath)
	if err != nil {
		return corpus.Registrant{}, fmt.Errorf("fetch ticker map: %w", err)
	}

	var entries map[string]tickerEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return corpus.Registrant{}, fmt.Errorf("parse ticker map: %w", err)
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.Ticker, ticker) {
			cik := fmt.Sprintf("%010d", entry.CIK)
			c.logger.Info("resolved ticker", "ticker", ticker, "cik", cik)
			return corpus.NewRegistrant(cik, entry.Title), nil
		}
	}

	return corpus.Registrant{}, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
}

// submissionsResponse is the subset of the submissions API payload the
// client reads. Recent filings come as parallel arrays.
type submissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// Filings lists a company's most recent filings of the given form type,
// newest first. limit <= 0 returns all recent filings of that type.
func (c *Client) Filings(ctx context.Context, cik string, filingType corpus.FilingType, limit int) ([]corpus.FilingRef, error) {
	padded := padCIK(cik)

	body, err := c.get(ctx, c.dataURL+fmt.Sprintf(submissionsPath, padded))
	if err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %s: %w", padded, err)
	}

	var subs submissionsResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("parse submissions for CIK %s: %w", padded, err)
	}

	recent := subs.Filings.Recent
	var refs []corpus.FilingRef
	for i, form := range recent.Form {
		if corpus.FilingType(form) != filingType {
			continue
		}
		if i >= len(recent.AccessionNumber) || i >= len(recent.FilingDate) || i >= len(recent.PrimaryDocument) {
			break
		}

		filedAt, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			c.logger.Warn("skipping filing with bad date",
				"accession", recent.AccessionNumber[i], "date", recent.FilingDate[i])
			continue
		}

		fiscalYear := filedAt.Year()
		if i < len(recent.ReportDate) {
			if reported, err := time.Parse("2006-01-02", recent.ReportDate[i]); err == nil {
				fiscalYear = reported.Year()
			}
		}

		url := c.baseURL + fmt.Sprintf(archivePath,
			strings.TrimLeft(padded, "0"),
			strings.ReplaceAll(recent.AccessionNumber[i], "-", ""),
			recent.PrimaryDocument[i],
		)

		refs = append(refs, corpus.NewFilingRef(
			recent.AccessionNumber[i], filingType, filedAt, fiscalYear, url,
		))
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].FiledAt().After(refs[j].FiledAt())
	})
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	c.logger.Info("discovered filings",
		"cik", padded, "filing_type", string(filingType), "count", len(refs))
	return refs, nil
}

// Fetch downloads a filing's primary document and strips its markup.
func (c *Client) Fetch(ctx context.Context, ref corpus.FilingRef) (string, error) {
	body, err := c.get(ctx, ref.SourceURL())
	if err != nil {
		return "", fmt.Errorf("fetch filing %s: %w", ref.AccessionNumber(), err)
	}
	return CleanHTML(string(body)), nil
}

// get performs a rate-limited GET with the SEC User-Agent.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// padCIK left-pads a CIK to the ten digits the submissions API expects.
func padCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	if len(cik) < 10 {
		cik = strings.Repeat("0", 10-len(cik)) + cik
	}
	return cik
}

var _ corpus.DocumentSource = (*Client)(nil)
