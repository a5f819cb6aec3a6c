// Package alert delivers escalation notifications across configured channels
// with per-job cooldowns and attempt budgets.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
)

// Channel names matching the alerting.channels configuration keys.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelPush    = "push"
	ChannelInApp   = "in_app"
	ChannelWebhook = "webhook"
)

// Alert is one notification handed to a channel sender.
type Alert struct {
	JobID     string               `json:"job_id"`
	Stage     jobs.EscalationStage `json:"-"`
	StageName string               `json:"stage"`
	Channel   string               `json:"channel"`
	Message   string               `json:"message"`
	CreatedAt time.Time            `json:"created_at"`
}

// Sender delivers alerts over one channel. Implementations must respect the
// context deadline; the dispatcher bounds every send with a timeout.
type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, a Alert) error

func (f SenderFunc) Send(ctx context.Context, a Alert) error { return f(ctx, a) }

// Registry maps channel names to their senders. Channels enabled in the
// configuration but without a registered sender are skipped with a warning.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

// NewRegistry creates an empty sender registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register installs a sender for a channel, replacing any previous one.
func (r *Registry) Register(channel string, s Sender) error {
	if s == nil {
		return errors.Newf("nil sender for channel %q", channel)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[channel] = s
	return nil
}

// Get returns the sender for a channel, or nil if none is registered.
func (r *Registry) Get(channel string) Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.senders[channel]
}

// Channels returns the registered channel names.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.senders))
	for name := range r.senders {
		names = append(names, name)
	}
	return names
}

// enabledChannels lists the channels switched on in configuration, in a
// stable order.
func enabledChannels(ch config.ChannelsConfig) []string {
	var out []string
	if ch.Email {
		out = append(out, ChannelEmail)
	}
	if ch.SMS {
		out = append(out, ChannelSMS)
	}
	if ch.Push {
		out = append(out, ChannelPush)
	}
	if ch.InApp {
		out = append(out, ChannelInApp)
	}
	if ch.Webhook {
		out = append(out, ChannelWebhook)
	}
	return out
}
