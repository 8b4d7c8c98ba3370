package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anvers/jobrelay/internal/model"
)

// Ensure AuthAPI implements model.FetchStrategy.
var _ model.FetchStrategy = (*AuthAPI)(nil)

// AuthAPI fetches listings through the authenticated admin API, which includes
// unlisted fields (department, employment type, full descriptions) the public
// feed omits. Requires an API token, so it is skipped when none is configured.
type AuthAPI struct {
	baseURL   string
	companyID string
	token     string
}

// NewAuthAPI creates the authenticated API strategy.
func NewAuthAPI(baseURL, companyID, token string) *AuthAPI {
	return &AuthAPI{
		baseURL:   baseURL,
		companyID: companyID,
		token:     token,
	}
}

func (s *AuthAPI) Name() string { return "auth-api" }

// CanHandle reports whether an API token is configured.
func (s *AuthAPI) CanHandle() bool {
	return s.baseURL != "" && s.companyID != "" && s.token != ""
}

// adminJobsResponse is the paginated admin API response. The relay requests
// the maximum page size and follows the next cursor until exhausted.
type adminJobsResponse struct {
	Jobs []model.RawJobRecord `json:"jobs"`
	Next string               `json:"next"`
}

// FetchJobs retrieves all listings from the admin API, following pagination.
func (s *AuthAPI) FetchJobs(ctx context.Context, doer model.Doer) ([]model.RawJobRecord, error) {
	var all []model.RawJobRecord

	url := fmt.Sprintf("%s/api/v1/companies/%s/jobs?limit=100", s.baseURL, s.companyID)
	for url != "" {
		page, next, err := s.fetchPage(ctx, doer, url)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if next != "" {
			url = fmt.Sprintf("%s/api/v1/companies/%s/jobs?limit=100&cursor=%s", s.baseURL, s.companyID, next)
		} else {
			url = ""
		}
	}

	return all, nil
}

func (s *AuthAPI) fetchPage(ctx context.Context, doer model.Doer, url string) ([]model.RawJobRecord, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("admin API fetch for %s: %w", s.companyID, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := doer.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("admin API fetch for %s: %w", s.companyID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("admin API fetch for %s: unexpected status %d", s.companyID, resp.StatusCode)
	}

	var page adminJobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("admin API fetch for %s: %w", s.companyID, err)
	}

	return page.Jobs, page.Next, nil
}
