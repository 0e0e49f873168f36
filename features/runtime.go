package features

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/proto"
)

const (
	DefaultInterval       = 50 * time.Millisecond
	DefaultConnectTimeout = 5 * time.Second
	DefaultRetryDelay     = 5 * time.Second
	DefaultPollTimeout    = 10 * time.Millisecond
)

// Runtime is the single goroutine allowed to touch its Client. It
// reconnects when the session drops, polls for downlinks and ticks every
// feature.
type Runtime struct {
	Client  *client.Client
	Manager *Manager
	Logger  *slog.Logger

	Interval       time.Duration
	ConnectTimeout time.Duration
	RetryDelay     time.Duration
	PollTimeout    time.Duration

	nextAttempt time.Time
}

// NewRuntime builds a runtime whose client delivers messages to m. The
// client must have been created with m.HandleMessage as its handler.
// The runtime chains onto the client's error handler so that a server
// which no longer knows the session triggers a new handshake.
func NewRuntime(c *client.Client, m *Manager) *Runtime {
	r := &Runtime{
		Client:         c,
		Manager:        m,
		Logger:         slog.Default(),
		Interval:       DefaultInterval,
		ConnectTimeout: DefaultConnectTimeout,
		RetryDelay:     DefaultRetryDelay,
		PollTimeout:    DefaultPollTimeout,
	}

	var prev func(proto.Reason)
	prev = c.SetErrorHandler(func(reason proto.Reason) {
		if prev != nil {
			prev(reason)
		}
		r.serverError(reason)
	})
	return r
}

// serverError drops the session when the server has forgotten it, after an
// idle expiry or a restart. Step then reconnects and re-runs InitAll.
func (r *Runtime) serverError(reason proto.Reason) {
	if reason != proto.ReasonNotIdentified || !r.Client.IsConnected() {
		return
	}
	r.Logger.Warn("Session lost, reconnecting", "reason", reason)
	r.Client.Reset()
}

// Run blocks until ctx is cancelled. Features are started before the
// first connection attempt and stopped on return.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Manager.StartAll(); err != nil {
		return err
	}
	defer r.Manager.StopAll()

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.Step(time.Now())
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("Runtime stopping", "reason", ctx.Err())
			return nil
		case now := <-ticker.C:
			r.Step(now)
		}
	}
}

// Step runs one iteration of the loop.
func (r *Runtime) Step(now time.Time) {
	if !r.Client.IsConnected() && !r.connect(now) {
		r.Manager.UpdateAll(now)
		return
	}

	if err := r.Client.Poll(r.PollTimeout); err != nil {
		r.Logger.Warn("Poll failed", "error", err)
	}
	r.Manager.UpdateAll(now)
}

func (r *Runtime) connect(now time.Time) bool {
	if now.Before(r.nextAttempt) {
		return false
	}
	if err := r.Client.Connect(r.ConnectTimeout); err != nil {
		r.Logger.Warn("Connect failed, retrying later", "error", err, "retry_in", r.RetryDelay)
		r.nextAttempt = now.Add(r.RetryDelay)
		return false
	}
	if err := r.Manager.InitAll(r.Client); err != nil {
		r.Logger.Error("Feature init failed", "error", err)
	}
	return true
}
