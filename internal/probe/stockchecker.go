package probe

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/mkurata/pbwatch/internal/domain"
)

// The shop blocks obvious bot clients, so we present a plain desktop browser.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Product pages are a few hundred KB; anything past this is not the page we want.
const maxBodyBytes = 4 << 20

var (
	titleRe = regexp.MustCompile(`<title>(.*?) \|`)
	priceRe = regexp.MustCompile(`price: '(\d+)'`)
	stockRe = regexp.MustCompile(`(?s)orderstock_list = \{.*?"(.*?)":"(.*?)"`)
	maxRe   = regexp.MustCompile(`(?s)ordermax_list = \{.*?"(.*?)":(\d+)`)
	imageRe = regexp.MustCompile(`<meta property="og:image" content="(.*?)"`)
)

// StockChecker fetches a product page and reads stock state out of the HTML.
type StockChecker struct {
	Client    *http.Client
	UserAgent string
}

func NewStockChecker(timeout time.Duration) *StockChecker {
	return &StockChecker{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
	}
}

func (c *StockChecker) Check(ctx context.Context, target string) Result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Message: err.Error()}
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		return Result{Message: err.Error(), LatencyMS: latency}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{
			StatusCode: resp.StatusCode,
			LatencyMS:  latency,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{StatusCode: resp.StatusCode, LatencyMS: latency, Message: err.Error()}
	}

	snap := parseProduct(target, body)
	return Result{
		OK:         true,
		StatusCode: resp.StatusCode,
		LatencyMS:  latency,
		Message:    resp.Status,
		Snapshot:   &snap,
	}
}

// parseProduct extracts the product fields from page HTML. Missing pieces fall
// back to the same placeholders the web UI has always shown.
func parseProduct(url string, html []byte) domain.Snapshot {
	snap := domain.Snapshot{
		URL:   url,
		Title: "不明な商品",
		Price: "---",
	}

	if m := titleRe.FindSubmatch(html); m != nil {
		snap.Title = string(m[1])
	}
	if m := priceRe.FindSubmatch(html); m != nil {
		snap.Price = string(m[1]) + "円"
	}
	if m := imageRe.FindSubmatch(html); m != nil {
		snap.ImageURL = string(m[1])
	}
	// First entry of orderstock_list carries the sellable state: "○" means buyable.
	if m := stockRe.FindSubmatch(html); m != nil && string(m[2]) == "○" {
		snap.InStock = true
	}
	if m := maxRe.FindSubmatch(html); m != nil {
		if n, err := strconv.Atoi(string(m[2])); err == nil {
			snap.MaxOrder = n
		}
	}

	snap.StatusText = "在庫なし"
	if snap.InStock {
		snap.StatusText = "在庫あり"
	}
	return snap
}
