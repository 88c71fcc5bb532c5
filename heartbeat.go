package main

import (
	"context"
	"time"

	"github.com/global-nexus/newscache/log"
	"github.com/global-nexus/newscache/nexus"
)

const heartbeatInterval = 30 * time.Second
const heartbeatTimeout = 5 * time.Second

// heartbeat periodically asks the backend whether it is initialized and
// mirrors the answer into the backend_up gauge.
type heartbeat struct {
	actor  nexus.Actor
	stopCh chan struct{}
	doneCh chan struct{}
}

func newHeartbeat(actor nexus.Actor) *heartbeat {
	hb := &heartbeat{
		actor:  actor,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go func() {
		log.Debugf("heartbeat: start")
		hb.run()
		log.Debugf("heartbeat: stop")
		close(hb.doneCh)
	}()
	return hb
}

func (hb *heartbeat) run() {
	hb.beat()
	for {
		select {
		case <-time.After(heartbeatInterval):
			hb.beat()
		case <-hb.stopCh:
			return
		}
	}
}

func (hb *heartbeat) beat() {
	ctx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
	defer cancel()

	if _, err := hb.actor.IsInitializedActor(ctx); err != nil {
		backendUp.Set(0)
		log.Debugf("heartbeat: backend unreachable: %s", err)
		return
	}
	backendUp.Set(1)
}

func (hb *heartbeat) close() {
	close(hb.stopCh)
	<-hb.doneCh
}
