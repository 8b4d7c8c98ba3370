package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/anvers/jobrelay/internal/model"
)

// Ensure PageScrape implements model.FetchStrategy.
var _ model.FetchStrategy = (*PageScrape)(nil)

// Career-site pages embed their listings as a JSON island the client-side app
// hydrates from. Matching that script block avoids a full browser render.
var jobsDataRegex = regexp.MustCompile(`(?s)<script[^>]+id="jobs-data"[^>]*>(.*?)</script>`)

const maxPageBytes = 4 << 20 // rendered career pages run large, cap at 4 MiB

// PageScrape is the last-resort strategy: it downloads the rendered careers
// page and extracts the embedded listings JSON. Slowest and most brittle, so
// it is ordered after both API strategies.
type PageScrape struct {
	pageURL string
}

// NewPageScrape creates the careers-page scrape strategy.
func NewPageScrape(pageURL string) *PageScrape {
	return &PageScrape{pageURL: pageURL}
}

func (s *PageScrape) Name() string { return "page-scrape" }

// CanHandle reports whether a careers page URL is configured.
func (s *PageScrape) CanHandle() bool {
	return s.pageURL != ""
}

// FetchJobs downloads the careers page and parses the embedded jobs JSON.
func (s *PageScrape) FetchJobs(ctx context.Context, doer model.Doer) ([]model.RawJobRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", s.pageURL, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", s.pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraping %s: unexpected status %d", s.pageURL, resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", s.pageURL, err)
	}

	match := jobsDataRegex.FindSubmatch(page)
	if match == nil {
		return nil, fmt.Errorf("scraping %s: no embedded jobs data found", s.pageURL)
	}

	var raws []model.RawJobRecord
	if err := json.Unmarshal(match[1], &raws); err != nil {
		return nil, fmt.Errorf("scraping %s: parsing embedded jobs data: %w", s.pageURL, err)
	}

	return raws, nil
}
