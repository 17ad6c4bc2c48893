// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mlunde/adventpace/internal/domain/dedupe"
	"github.com/mlunde/adventpace/internal/domain/model"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body,
// optionally prefixed with "sha256=".
const SignatureHeader = "X-Hub-Signature-256"

const maxWebhookBody = 1 << 20

// WebhookDependencies defines the interface for webhook ingestion.
type WebhookDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.WebhookEvent) bool
}

// WebhookHandler handles the Strava push subscription endpoints.
type WebhookHandler struct {
	deps        WebhookDependencies
	secret      []byte
	verifyToken string
}

// NewWebhookHandler creates a new webhook handler. An empty secret
// disables signature verification.
func NewWebhookHandler(deps WebhookDependencies, secret, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		deps:        deps,
		secret:      []byte(secret),
		verifyToken: verifyToken,
	}
}

// HandleVerify handles the GET subscription handshake. Strava expects
// the challenge echoed back under the "hub.challenge" key.
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook_verify"
	q := r.URL.Query()
	if h.verifyToken != "" && q.Get("hub.verify_token") != h.verifyToken {
		writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"hub.challenge": q.Get("hub.challenge"),
	})
}

// HandleEvent handles POST webhook deliveries. The signature is checked
// over the raw body before any parsing; invalid signatures are rejected
// with 403. Valid events are acked immediately and processed async.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook_event"

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if len(h.secret) > 0 && !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		writeError(w, http.StatusForbidden, "invalid_signature", NewKind(op, ErrForbidden))
		return
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Redeliveries carry an identical body; ack them without enqueueing.
	fp := dedupe.Fingerprint(body)
	if h.deps.SeenAndRecord(r.Context(), fp) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}

	if ok := h.deps.Enqueue(r.Context(), event); !ok {
		// Roll back the seen status so a retry can land.
		h.deps.Unrecord(r.Context(), fp)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// verifySignature compares the claimed HMAC against one computed over
// the raw body, in constant time.
func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	claimed := strings.TrimPrefix(header, "sha256=")
	sig, err := hex.DecodeString(claimed)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
