package finetune

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StatusPoller refreshes running training jobs on a fixed interval so
// records converge on their terminal state even when no client is
// polling the status endpoint. Polling a job stops on the first remote
// failure; the next client status request restarts the refresh path.
type StatusPoller struct {
	manager  *Manager
	interval time.Duration

	mu     sync.Mutex
	active map[string]*pollHandle
	wg     sync.WaitGroup
}

type pollHandle struct {
	cancel context.CancelFunc
}

// NewStatusPoller creates a poller. interval defaults to 5 seconds when
// zero or negative.
func NewStatusPoller(manager *Manager, interval time.Duration) *StatusPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StatusPoller{
		manager:  manager,
		interval: interval,
		active:   make(map[string]*pollHandle),
	}
}

// Track starts polling a training job. Tracking an ID that is already
// being polled cancels the previous loop first, so a job is never polled
// twice concurrently.
func (p *StatusPoller) Track(ctx context.Context, id string) {
	pollCtx, cancel := context.WithCancel(ctx)
	handle := &pollHandle{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.active[id]; ok {
		prev.cancel()
	}
	p.active[id] = handle
	p.mu.Unlock()

	p.wg.Add(1)
	go p.loop(pollCtx, id, handle)
}

func (p *StatusPoller) loop(ctx context.Context, id string, handle *pollHandle) {
	defer p.wg.Done()
	defer p.untrack(id, handle)

	logger := p.manager.logger.With(zap.String("training_id", id))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			record, _, err := p.manager.GetStatus(ctx, id)
			if err != nil {
				// Fail-stop: one bad poll ends the loop rather than
				// hammering a broken gateway every five seconds.
				logger.Warn("status poll failed, stopping", zap.Error(err))
				return
			}
			if IsTerminalStatus(record.Status) {
				return
			}
		}
	}
}

// untrack removes this loop's registration. A newer loop for the same ID
// owns the map slot, so only matching handles are removed.
func (p *StatusPoller) untrack(id string, handle *pollHandle) {
	p.mu.Lock()
	if p.active[id] == handle {
		delete(p.active, id)
	}
	p.mu.Unlock()
	handle.cancel()
}

// Stop cancels every active poll loop and waits for them to exit.
func (p *StatusPoller) Stop() {
	p.mu.Lock()
	for _, h := range p.active {
		h.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
}
