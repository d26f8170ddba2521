// Package ratios scrapes financial ratios and company metadata from a
// company summary page.
package ratios

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/pkg/config"
	"github.com/nicebigrose/stock-analysis-system/pkg/httputil"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Client scrapes {base}/company/{symbol}/
// ⭐ SSOT: 재무비율 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	now        func() time.Time
}

// NewClient creates a ratio page client
func NewClient(httpClient *httputil.Client, cfg config.RatiosConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("ratios"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		now:        time.Now,
	}
}

// Ratios returns the ratio snapshot. ErrDataUnavailable when the page is
// missing or lists no recognised ratio.
func (c *Client) Ratios(ctx context.Context, symbol string) (*contracts.RatioSnapshot, error) {
	ratios, _, err := c.Company(ctx, symbol)
	return ratios, err
}

// Profile returns the company name, industry and exchange
func (c *Client) Profile(ctx context.Context, symbol string) (*contracts.CompanyProfile, error) {
	doc, err := c.fetchPage(ctx, symbol)
	if err != nil {
		return nil, err
	}
	profile := parseProfile(doc, symbol)
	if profile == nil {
		return nil, fmt.Errorf("%w: no company name for %s", contracts.ErrDataUnavailable, symbol)
	}
	return profile, nil
}

// Company fetches the page once and returns both views. The profile is
// nil when the page has no company name.
func (c *Client) Company(ctx context.Context, symbol string) (*contracts.RatioSnapshot, *contracts.CompanyProfile, error) {
	doc, err := c.fetchPage(ctx, symbol)
	if err != nil {
		return nil, nil, err
	}

	ratios := parseRatios(doc, symbol)
	if ratios.Count() == 0 {
		return nil, nil, fmt.Errorf("%w: no ratios for %s", contracts.ErrDataUnavailable, symbol)
	}
	ratios.FetchedAt = c.now()

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"ratios": ratios.Count(),
		"year":   ratios.Year,
	}).Debug("ratios scraped")
	return ratios, parseProfile(doc, symbol), nil
}

func (c *Client) fetchPage(ctx context.Context, symbol string) (*goquery.Document, error) {
	fullURL := fmt.Sprintf("%s/company/%s/", c.baseURL, url.PathEscape(symbol))

	body, err := c.httpClient.GetBody(ctx, fullURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: company page for %s not found", contracts.ErrDataUnavailable, symbol)
		}
		return nil, fmt.Errorf("company page %s: %w", symbol, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse company page %s: %w", symbol, err)
	}
	return doc, nil
}

// ratioField maps a label fragment to a snapshot field.
// percent marks ratios that some pages print as fractions.
type ratioField struct {
	label   string
	percent bool
	set     func(r *contracts.RatioSnapshot, v float64)
}

// ⭐ SSOT: 라벨 매칭 순서가 중요 (더 구체적인 라벨이 먼저)
var ratioFields = []ratioField{
	{"price to book", false, func(r *contracts.RatioSnapshot, v float64) { r.PB = &v }},
	{"p/b", false, func(r *contracts.RatioSnapshot, v float64) { r.PB = &v }},
	{"p/e", false, func(r *contracts.RatioSnapshot, v float64) { r.PE = &v }},
	{"price to earning", false, func(r *contracts.RatioSnapshot, v float64) { r.PE = &v }},
	{"book value", false, func(r *contracts.RatioSnapshot, v float64) { r.BVPS = &v }},
	{"roce", false, nil},
	{"roe", true, func(r *contracts.RatioSnapshot, v float64) { r.ROE = &v }},
	{"return on equity", true, func(r *contracts.RatioSnapshot, v float64) { r.ROE = &v }},
	{"roa", true, func(r *contracts.RatioSnapshot, v float64) { r.ROA = &v }},
	{"return on assets", true, func(r *contracts.RatioSnapshot, v float64) { r.ROA = &v }},
	{"debt to equity", false, func(r *contracts.RatioSnapshot, v float64) { r.DebtToEquity = &v }},
	{"d/e", false, func(r *contracts.RatioSnapshot, v float64) { r.DebtToEquity = &v }},
	{"net margin", true, func(r *contracts.RatioSnapshot, v float64) { r.NetMargin = &v }},
	{"net profit margin", true, func(r *contracts.RatioSnapshot, v float64) { r.NetMargin = &v }},
	{"gross margin", true, func(r *contracts.RatioSnapshot, v float64) { r.GrossMargin = &v }},
	{"current ratio", false, func(r *contracts.RatioSnapshot, v float64) { r.CurrentRatio = &v }},
	{"eps", false, func(r *contracts.RatioSnapshot, v float64) { r.EPS = &v }},
	{"market cap", false, func(r *contracts.RatioSnapshot, v float64) { r.MarketCap = &v }},
	{"sales growth", true, func(r *contracts.RatioSnapshot, v float64) { r.RevenueGrowth = &v }},
	{"revenue growth", true, func(r *contracts.RatioSnapshot, v float64) { r.RevenueGrowth = &v }},
	{"dividend yield", true, func(r *contracts.RatioSnapshot, v float64) { r.DividendYield = &v }},
}

func parseRatios(doc *goquery.Document, symbol string) *contracts.RatioSnapshot {
	r := &contracts.RatioSnapshot{Symbol: symbol}

	doc.Find("#top-ratios li").Each(func(_ int, sel *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(sel.Find(".name").Text()))
		raw := strings.TrimSpace(sel.Find(".number").Text())
		if raw == "" {
			raw = strings.TrimSpace(sel.Find(".value").Text())
		}

		v, ok := ParseNumber(raw)
		if name == "" || !ok {
			return
		}

		for _, f := range ratioFields {
			if !strings.Contains(name, f.label) {
				continue
			}
			if f.set == nil {
				return
			}
			if f.percent && !strings.Contains(raw, "%") && v > -1 && v < 1 && v != 0 {
				v *= 100
			}
			f.set(r, v)
			return
		}
	})

	if period, ok := doc.Find("[data-period]").First().Attr("data-period"); ok {
		r.Year, r.Quarter = parsePeriod(period)
	}
	return r
}

func parseProfile(doc *goquery.Document, symbol string) *contracts.CompanyProfile {
	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		return nil
	}
	info := doc.Find(".company-info").First()
	return &contracts.CompanyProfile{
		Symbol:      symbol,
		CompanyName: name,
		Industry:    strings.TrimSpace(info.Find(".industry").First().Text()),
		Exchange:    strings.TrimSpace(info.Find(".exchange").First().Text()),
	}
}

var (
	yearRe    = regexp.MustCompile(`(19|20)\d{2}`)
	quarterRe = regexp.MustCompile(`(?i)Q([1-4])`)
)

// parsePeriod reads "2024", "2024Q3", "Q3 2024" or "Mar 2024"
func parsePeriod(s string) (year, quarter int) {
	if m := yearRe.FindString(s); m != "" {
		year, _ = strconv.Atoi(m)
	}
	if m := quarterRe.FindStringSubmatch(s); len(m) == 2 {
		quarter, _ = strconv.Atoi(m[1])
	}
	return year, quarter
}

// ParseNumber reads "1,234.5", "12.3%", "450 Cr", "1.2B", "(3.4)" style
// figures. Cr is 1e7, B 1e9, M 1e6, K 1e3.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, junk := range []string{",", "%", "₹", "$", "x", " "} {
		s = strings.ReplaceAll(s, junk, "")
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return 0, false
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	multiplier := 1.0
	for _, suf := range []struct {
		text string
		mult float64
	}{
		{"Cr.", 1e7}, {"Cr", 1e7}, {"B", 1e9}, {"M", 1e6}, {"K", 1e3},
	} {
		if strings.HasSuffix(s, suf.text) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suf.text))
			multiplier = suf.mult
			break
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v * multiplier, true
}
