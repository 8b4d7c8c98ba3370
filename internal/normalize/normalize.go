package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/anvers/jobrelay/internal/model"
)

// Acceptable source keys per canonical field, tried in order. Strategies and
// upstream platforms disagree on naming, so each field matches several.
var (
	idKeys          = []string{"id", "jobId", "job_id", "shortcode", "requisitionId"}
	titleKeys       = []string{"title", "name", "text", "position"}
	departmentKeys  = []string{"department", "team", "category", "function"}
	locationKeys    = []string{"location", "city", "office", "workplace"}
	typeKeys        = []string{"employmentType", "employment_type", "type", "contractType", "contract_type"}
	descriptionKeys = []string{"description", "descriptionHtml", "content", "body"}
	postedKeys      = []string{"postedAt", "posted_at", "publishedAt", "published_at", "createdAt", "created", "date"}
	urlKeys         = []string{"applyUrl", "apply_url", "url", "absoluteUrl", "absolute_url", "hostedUrl", "redirectUrl", "redirect_url"}
)

// Date layouts seen across the supported platforms, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// NormalizeJobs converts raw strategy output into canonical jobs. Records that
// cannot be resolved (missing identifier, title, or apply URL, or a posting
// date that is present but unparsable) are dropped; the batch never fails for
// a single bad record. Output order mirrors input order with dropped records
// simply absent.
func NormalizeJobs(raws []model.RawJobRecord, source model.JobSource) []model.NormalizedJob {
	jobs := make([]model.NormalizedJob, 0, len(raws))
	for _, raw := range raws {
		job, ok := normalizeOne(raw, source)
		if !ok {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func normalizeOne(raw model.RawJobRecord, source model.JobSource) (model.NormalizedJob, bool) {
	id := firstString(raw, idKeys)
	title := firstString(raw, titleKeys)
	applyURL := firstString(raw, urlKeys)
	if id == "" || title == "" || applyURL == "" {
		return model.NormalizedJob{}, false
	}

	posted := firstString(raw, postedKeys)
	if posted != "" {
		iso, err := coerceDate(posted)
		if err != nil {
			return model.NormalizedJob{}, false
		}
		posted = iso
	}

	return model.NormalizedJob{
		ID:             id,
		Title:          title,
		Department:     firstString(raw, departmentKeys),
		Location:       firstString(raw, locationKeys),
		EmploymentType: firstString(raw, typeKeys),
		Description:    ExtractText(firstString(raw, descriptionKeys)),
		PostedAt:       posted,
		ApplyURL:       applyURL,
		Source:         source,
		Raw:            raw,
		ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
	}, true
}

// firstString returns the first non-empty string value among the candidate
// keys. Nested objects with a "name" field (e.g. {"location": {"name": ...}})
// are unwrapped one level.
func firstString(raw model.RawJobRecord, keys []string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			// JSON numbers decode as float64; IDs are often numeric.
			return fmtFloat(val)
		case map[string]any:
			if name, ok := val["name"].(string); ok && name != "" {
				return name
			}
			if name, ok := val["displayName"].(string); ok && name != "" {
				return name
			}
		}
	}
	return ""
}

func fmtFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}

// coerceDate parses a date-like string with any known layout and re-renders it
// as RFC 3339 UTC.
func coerceDate(value string) (string, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("unparsable date %q", value)
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// ExtractText converts an HTML or HTML-encoded string to plain text. It first
// unescapes HTML entities (handles double-encoded descriptions; no-op on
// already-real HTML), strips all tags, then collapses whitespace.
func ExtractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}
