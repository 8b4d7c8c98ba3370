package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anvers/jobrelay/internal/model"
)

// UserAgent identifies this relay on delivered requests.
const UserAgent = "jobrelay/1.0"

// SyncRequest is the JSON body delivered to the downstream webhook.
type SyncRequest struct {
	Source    model.JobSource       `json:"source"`
	Jobs      []model.NormalizedJob `json:"jobs"`
	Timestamp string                `json:"timestamp"`
	RequestID string                `json:"requestId"`
}

// Envelope is a signed, ready-to-send delivery payload. Body holds the exact
// serialized bytes the signature covers; mutating Body after construction
// invalidates the signature, so callers must build a fresh envelope instead.
type Envelope struct {
	RequestID string
	Body      []byte
	Headers   map[string]string
}

// BuildEnvelope assembles and signs a delivery payload. The request ID is
// a fresh UUID on every call, so rapid successive builds never collide and the
// receiver can deduplicate retries. The HMAC-SHA256 signature is computed over
// the exact serialized bytes shipped; serialization happens once, before
// signing, and never again after.
func BuildEnvelope(jobs []model.NormalizedJob, source model.JobSource, secret string) (*Envelope, error) {
	req := SyncRequest{
		Source:    source,
		Jobs:      jobs,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: uuid.NewString(),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("serializing sync request: %w", err)
	}

	return &Envelope{
		RequestID: req.RequestID,
		Body:      body,
		Headers: map[string]string{
			"Content-Type":        "application/json",
			"X-Webhook-Signature": "sha256=" + Sign(body, secret),
			"X-Request-ID":        req.RequestID,
			"User-Agent":          UserAgent,
		},
	}, nil
}

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether header matches "sha256=<hex>" for payload
// under secret, using a constant-time comparison.
func VerifySignature(payload []byte, secret, header string) bool {
	want := "sha256=" + Sign(payload, secret)
	return hmac.Equal([]byte(want), []byte(header))
}
