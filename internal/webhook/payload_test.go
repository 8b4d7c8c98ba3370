package webhook

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/anvers/jobrelay/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func sampleJobs() []model.NormalizedJob {
	return []model.NormalizedJob{
		{
			ID:          "j-1",
			Title:       "Platform Engineer",
			ApplyURL:    "https://careers.example.com/j-1",
			Source:      model.SourceScheduled,
			ProcessedAt: "2026-08-30T12:00:00Z",
		},
	}
}

func TestBuildEnvelope_HeadersAndBody(t *testing.T) {
	env, err := BuildEnvelope(sampleJobs(), model.SourceScheduled, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.Headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", env.Headers["Content-Type"])
	}
	if env.Headers["User-Agent"] != UserAgent {
		t.Errorf("User-Agent = %q", env.Headers["User-Agent"])
	}
	if env.Headers["X-Request-ID"] != env.RequestID {
		t.Errorf("X-Request-ID = %q, want %q", env.Headers["X-Request-ID"], env.RequestID)
	}
	if !strings.HasPrefix(env.Headers["X-Webhook-Signature"], "sha256=") {
		t.Errorf("signature header %q missing sha256= prefix", env.Headers["X-Webhook-Signature"])
	}

	var req SyncRequest
	if err := json.Unmarshal(env.Body, &req); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if req.Source != model.SourceScheduled {
		t.Errorf("source = %q", req.Source)
	}
	if len(req.Jobs) != 1 {
		t.Errorf("jobs length = %d, want 1", len(req.Jobs))
	}
	if req.RequestID != env.RequestID {
		t.Errorf("body requestId = %q, want %q", req.RequestID, env.RequestID)
	}
	if req.Timestamp == "" {
		t.Error("timestamp should be set")
	}
}

func TestBuildEnvelope_SignatureValidatesShippedBytes(t *testing.T) {
	env, err := BuildEnvelope(sampleJobs(), model.SourceManual, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !VerifySignature(env.Body, testSecret, env.Headers["X-Webhook-Signature"]) {
		t.Error("signature does not validate for the shipped bytes")
	}
}

func TestSign_Deterministic(t *testing.T) {
	payload := []byte(`{"jobs":[]}`)
	if Sign(payload, testSecret) != Sign(payload, testSecret) {
		t.Error("signing identical bytes twice must yield identical signatures")
	}
}

func TestSign_Avalanche(t *testing.T) {
	payload := []byte(`{"jobs":[]}`)
	mutated := []byte(`{"jobs":[{}`)

	if Sign(payload, testSecret) == Sign(mutated, testSecret) {
		t.Error("changing payload bytes must change the signature")
	}
	if Sign(payload, testSecret) == Sign(payload, testSecret+"x") {
		t.Error("changing the secret must change the signature")
	}
}

func TestBuildEnvelope_UniqueRequestIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		env, err := BuildEnvelope(sampleJobs(), model.SourceManual, testSecret)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[env.RequestID] {
			t.Fatalf("duplicate request ID %q after %d builds", env.RequestID, i)
		}
		seen[env.RequestID] = true
	}
}
