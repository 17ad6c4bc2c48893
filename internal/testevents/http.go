package testevents

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// signatureHeader carries the hex HMAC-SHA256 of the request body.
const signatureHeader = "X-Hub-Signature-256"

// HTTPClient wraps http.Client with a signing secret.
type HTTPClient struct {
	client *http.Client
	secret []byte
}

func newHTTPClient(timeout time.Duration, secret string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		secret: []byte(secret),
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// PostSigned performs a POST with a JSON body and a webhook signature.
func (c *HTTPClient) PostSigned(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if len(c.secret) > 0 {
		mac := hmac.New(sha256.New, c.secret)
		mac.Write(jsonData)
		req.Header.Set(signatureHeader, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	return c.client.Do(req)
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitEvents submits events concurrently using a worker pool.
func submitEvents(ctx context.Context, config *Config, events []Event, stats *Stats) error {
	log.Printf("submitting %d events with %d workers...", len(events), config.Workers)

	client := newHTTPClient(config.Timeout, config.Secret)
	url := config.BaseURL + "/webhooks/strava"

	var (
		accepted  int64
		throttled int64
		rejected  int64
		failed    int64
		submitted int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

	eventChan := make(chan Event, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for event := range eventChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result := submitSingleEvent(ctx, client, url, event)

				atomic.AddInt64(&submitted, 1)
				switch result {
				case "accepted":
					atomic.AddInt64(&accepted, 1)
				case "throttled":
					atomic.AddInt64(&throttled, 1)
				case "rejected":
					atomic.AddInt64(&rejected, 1)
				case "failed":
					atomic.AddInt64(&failed, 1)
				}

				if time.Since(lastReport) >= reportInterval {
					lastReport = time.Now()
					total := atomic.LoadInt64(&submitted)
					if config.Verbose {
						log.Printf("progress: %d/%d submitted (accepted: %d, throttled: %d, rejected: %d, failed: %d)",
							total, len(events),
							atomic.LoadInt64(&accepted), atomic.LoadInt64(&throttled),
							atomic.LoadInt64(&rejected), atomic.LoadInt64(&failed))
					} else {
						fmt.Printf("\rsubmitted: %d/%d", total, len(events))
					}
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println()
	}

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsAccepted = int(atomic.LoadInt64(&accepted))
	stats.EventsThrottled = int(atomic.LoadInt64(&throttled))
	stats.EventsRejected = int(atomic.LoadInt64(&rejected))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`event submission completed:
   Accepted:  %d
   Throttled: %d
   Rejected:  %d
   Failed:    %d
`, stats.EventsAccepted, stats.EventsThrottled, stats.EventsRejected, stats.EventsFailed)

	return nil
}

// submitSingleEvent submits one signed event and classifies the
// response. The intake returns 200 for both fresh and duplicate
// deliveries, 429 under backpressure and 403 for bad signatures.
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event Event) string {
	resp, err := client.PostSigned(ctx, url, event)
	if err != nil {
		return "failed"
	}
	if _, err := readResponseBody(resp); err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusOK:
		return "accepted"
	case StatusTooManyQueue:
		return "throttled"
	case StatusForbidden:
		return "rejected"
	default:
		return "failed"
	}
}
