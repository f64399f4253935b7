package engine

import (
	"context"
	"time"

	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/provider"
)

// pendingDeepScan is a detached sandbox submission. Its id is only
// collected if it arrives before the grace deadline.
type pendingDeepScan struct {
	ids      chan string
	deadline time.Time
}

// submitDeepScan starts the submission without tying it to ctx's
// cancellation. Providers are tried in order until one returns an id.
func (e *Engine) submitDeepScan(ctx context.Context, in provider.Input) *pendingDeepScan {
	ps := e.providers[provider.KindDeepScan]
	if len(ps) == 0 {
		return nil
	}
	p := &pendingDeepScan{ids: make(chan string, 1), deadline: time.Now().Add(e.cfg.DeepScanGrace)}
	detached := context.WithoutCancel(ctx)
	go func() {
		for _, dp := range ps {
			o := e.call(detached, dp, in)
			if o.available() && o.signal.ScanID != "" {
				e.logger.Debug("deep scan submitted",
					logging.Field{Key: "provider", Value: dp.Name()},
					logging.Field{Key: "scan_id", Value: o.signal.ScanID})
				p.ids <- o.signal.ScanID
				return
			}
		}
		p.ids <- ""
	}()
	return p
}

// wait returns the submission id, or "" once the grace deadline or ctx
// expires first.
func (p *pendingDeepScan) wait(ctx context.Context) string {
	if p == nil {
		return ""
	}
	select {
	case id := <-p.ids:
		return id
	default:
	}
	remaining := time.Until(p.deadline)
	if remaining <= 0 {
		return ""
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case id := <-p.ids:
		return id
	case <-timer.C:
		return ""
	case <-ctx.Done():
		return ""
	}
}
