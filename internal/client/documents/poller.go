package documents

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/olexh/doctrans/internal/client/api"
	"github.com/olexh/doctrans/internal/logging"
)

// Poller reconciles the canonical collection on a fixed interval while any
// document is still processing. It is owned by the dashboard view: exactly
// one runs per mount, and navigating away must Stop it. Once no document
// remains in processing state the poller exits on its own, within one tick.
type Poller struct {
	ctrl     *Controller
	interval time.Duration
	log      logging.Logger

	cancel  context.CancelFunc
	done    chan struct{}
	expired atomic.Bool
}

func NewPoller(ctrl *Controller, interval time.Duration, log logging.Logger) *Poller {
	return &Poller{ctrl: ctrl, interval: interval, log: log}
}

// Start launches the polling loop. Any previous run is cancelled first, so
// two tickers can never overlap for the same view.
func (p *Poller) Start(ctx context.Context) {
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	p.expired.Store(false)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop cancels the running loop and waits for it to exit. Safe to call when
// nothing is running.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
}

// SessionExpired reports whether the last run stopped because the backend
// rejected the credential. The owning view must check it: the loop runs in
// the background and cannot force a screen transition itself. Reset on Start.
func (p *Poller) SessionExpired() bool {
	return p.expired.Load()
}

// Running reports whether a polling loop is currently alive.
func (p *Poller) Running() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !p.ctrl.HasProcessing() {
				p.log.Debug(ctx, "no documents processing, poller stopping")
				return
			}
			if err := p.ctrl.LoadAll(ctx); err != nil {
				if errors.Is(err, api.ErrSessionExpired) {
					p.expired.Store(true)
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				// Transient failures keep the last-known-good collection;
				// keep ticking.
				p.log.Warn(ctx, "poll failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
