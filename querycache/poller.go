package querycache

import (
	"context"
	"time"

	"github.com/global-nexus/newscache/log"
)

// Poller refetches one key at a fixed interval, keeping resources like the
// breaking-news ticker and open comment threads current without a read.
// Poll errors are logged and the previous cached value stays in place.
type Poller struct {
	cache    *Cache
	key      Key
	interval time.Duration
	fetch    FetchFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewPoller starts polling immediately and until Close is called.
func NewPoller(cache *Cache, key Key, interval time.Duration, fetch FetchFunc) *Poller {
	p := &Poller{
		cache:    cache,
		key:      key,
		interval: interval,
		fetch:    fetch,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go func() {
		log.Debugf("poller %q: start", p.key)
		p.run()
		log.Debugf("poller %q: stop", p.key)
		close(p.doneCh)
	}()

	return p
}

func (p *Poller) run() {
	for {
		select {
		case <-time.After(p.interval):
		case <-p.stopCh:
			return
		}

		if err := p.cache.Refresh(context.Background(), p.key, p.fetch); err != nil {
			log.Errorf("poller %q: background refetch failed: %s", p.key, err)
		}
	}
}

// Close stops the poller and waits for the loop to exit.
func (p *Poller) Close() error {
	close(p.stopCh)
	<-p.doneCh
	return nil
}
