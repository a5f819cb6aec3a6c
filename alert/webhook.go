package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/internal/httpclient"
)

// webhookBurst caps how many webhook posts may fire back to back before the
// per-second rate limit applies. A busy tick can alert several jobs at once.
const webhookBurst = 5

// WebhookSender posts alerts as JSON to a configured endpoint. Deliveries go
// through the SSRF-guarded client and are rate limited so an alert storm
// cannot flood the receiver.
//
// The URL is resolved per send, so a config swap changing or enabling the
// webhook endpoint takes effect without a restart.
type WebhookSender struct {
	client  *httpclient.SaferClient
	url     func() string
	limiter *rate.Limiter
}

// NewWebhookSender creates a sender posting to the endpoint url yields at
// send time. timeout bounds each request independently of the dispatcher's
// send timeout.
func NewWebhookSender(url func() string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		client:  httpclient.NewSaferClient(timeout),
		url:     url,
		limiter: rate.NewLimiter(rate.Every(time.Second), webhookBurst),
	}
}

// NewWebhookSenderWithClient creates a sender with an injected client.
// Tests use this with httpclient.WrapClient to reach a local test server.
func NewWebhookSenderWithClient(url func() string, client *httpclient.SaferClient) *WebhookSender {
	return &WebhookSender{
		client:  client,
		url:     url,
		limiter: rate.NewLimiter(rate.Every(time.Second), webhookBurst),
	}
}

func (s *WebhookSender) Send(ctx context.Context, a Alert) error {
	target := s.url()
	if target == "" {
		return errors.New("webhook URL not configured")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "webhook rate limit wait")
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "failed to marshal alert payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

var _ Sender = (*WebhookSender)(nil)
