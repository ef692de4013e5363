// Package eventhub delivers closed records to an Azure Event Hubs
// endpoint. Delivery is best-effort: one POST per record, no retry, no
// queue. Callers decide what a failure means; here it never means more
// than a log line.
package eventhub

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/quartz"

	"tabtime/internal/record"
)

// tokenTTL is how long a generated SAS token stays valid.
const tokenTTL = time.Hour

// DeliveryError describes one failed delivery attempt: either a non-2xx
// response (StatusCode and Body set) or a transport failure (Err set).
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event hub delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("event hub delivery failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Config identifies the target hub and the pre-shared signing key.
type Config struct {
	Namespace string
	Hub       string
	KeyName   string
	Key       string
}

// Sender posts records to one fixed Event Hubs endpoint using
// SharedAccessSignature tokens derived from the pre-shared key.
type Sender struct {
	cfg    Config
	client *http.Client
	clock  quartz.Clock

	// baseURL overrides the hub address for tests. The SAS signature is
	// always computed over the real resource URI.
	baseURL string
}

// NewSender builds a Sender. client and clock may be nil, in which case
// a default HTTP client with a 30s timeout and the real clock are used.
func NewSender(cfg Config, client *http.Client, clock quartz.Clock) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Sender{cfg: cfg, client: client, clock: clock}
}

// resourceURI is the hub address that both the token signature and the
// request URL are built from.
func (s *Sender) resourceURI() string {
	return fmt.Sprintf("https://%s.servicebus.windows.net/%s", s.cfg.Namespace, s.cfg.Hub)
}

// sasToken builds a SharedAccessSignature valid for tokenTTL from now.
// The signed string is the URL-encoded resource URI, a newline, and the
// expiry epoch seconds, MACed with HMAC-SHA256 under the shared key.
func (s *Sender) sasToken(now time.Time) string {
	expiry := now.Unix() + int64(tokenTTL.Seconds())
	encodedURI := url.QueryEscape(s.resourceURI())

	mac := hmac.New(sha256.New, []byte(s.cfg.Key))
	fmt.Fprintf(mac, "%s\n%d", encodedURI, expiry)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%d&skn=%s",
		encodedURI, url.QueryEscape(sig), expiry, s.cfg.KeyName)
}

// Send posts rec as a single-element batch. A non-2xx response or a
// transport failure returns a *DeliveryError; there is exactly one
// attempt per call.
func (s *Sender) Send(ctx context.Context, rec record.Record) error {
	body, err := json.Marshal([]record.Record{rec})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	base := s.resourceURI()
	if s.baseURL != "" {
		base = s.baseURL
	}
	endpoint := base + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.sasToken(s.clock.Now()))

	resp, err := s.client.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(text)}
	}
	return nil
}
