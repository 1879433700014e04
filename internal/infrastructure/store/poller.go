package store

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/example/storefront/internal/domain/order"
)

const DefaultPollInterval = 5 * time.Second

// Poller gives a pull-only store a push-style Subscribe: it lists the user's
// orders every interval and calls back when the list changed.
type Poller struct {
	lister   Lister
	interval time.Duration
	timeout  time.Duration
}

func NewPoller(lister Lister, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		lister:   lister,
		interval: interval,
		timeout:  interval,
	}
}

// Subscribe starts polling for uid. The first successful poll is always
// delivered; later polls only when the snapshot differs.
func (p *Poller) Subscribe(uid string, fn func([]order.Record)) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		var last []byte
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			last = p.poll(ctx, uid, last, fn)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
		})
	}
}

func (p *Poller) poll(ctx context.Context, uid string, last []byte, fn func([]order.Record)) []byte {
	pollCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	recs, err := p.lister.List(pollCtx, uid)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[OrderStore] Poll for user %s failed: %v", uid, err)
		}
		return last
	}

	fingerprint, err := json.Marshal(recs)
	if err != nil {
		log.Printf("[OrderStore] Failed to fingerprint orders for user %s: %v", uid, err)
		return last
	}
	if last != nil && string(fingerprint) == string(last) {
		return last
	}
	if ctx.Err() != nil {
		return last
	}
	fn(recs)
	return fingerprint
}
