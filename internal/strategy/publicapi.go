package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anvers/jobrelay/internal/model"
)

// Ensure PublicAPI implements model.FetchStrategy.
var _ model.FetchStrategy = (*PublicAPI)(nil)

// PublicAPI fetches the public, unauthenticated job-board feed of the career
// site. Cheapest strategy, so it is ordered first.
type PublicAPI struct {
	baseURL   string
	companyID string
}

// NewPublicAPI creates the public board strategy. baseURL is the platform API
// root, e.g. "https://careers.example.com".
func NewPublicAPI(baseURL, companyID string) *PublicAPI {
	return &PublicAPI{
		baseURL:   baseURL,
		companyID: companyID,
	}
}

func (s *PublicAPI) Name() string { return "public-api" }

// CanHandle reports whether the public board endpoint is configured.
func (s *PublicAPI) CanHandle() bool {
	return s.baseURL != "" && s.companyID != ""
}

// publicBoardResponse is the top-level public board API response.
type publicBoardResponse struct {
	Jobs []model.RawJobRecord `json:"jobs"`
}

// FetchJobs retrieves all listings from the public board feed.
func (s *PublicAPI) FetchJobs(ctx context.Context, doer model.Doer) ([]model.RawJobRecord, error) {
	url := fmt.Sprintf("%s/api/v1/boards/%s/jobs", s.baseURL, s.companyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("public board fetch for %s: %w", s.companyID, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("public board fetch for %s: %w", s.companyID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("public board fetch for %s: unexpected status %d", s.companyID, resp.StatusCode)
	}

	var board publicBoardResponse
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, fmt.Errorf("public board fetch for %s: %w", s.companyID, err)
	}

	return board.Jobs, nil
}
