package main

import (
	"context"
	"errors"
	"testing"

	"github.com/global-nexus/newscache/nexus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type beatActor struct {
	nexus.Actor

	err error
}

func (a *beatActor) IsInitializedActor(ctx context.Context) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return true, nil
}

func TestHeartbeatBeat(t *testing.T) {
	hb := &heartbeat{actor: &beatActor{}}
	hb.beat()
	assert.Equal(t, float64(1), testutil.ToFloat64(backendUp))

	hb.actor = &beatActor{err: errors.New("connection refused")}
	hb.beat()
	assert.Equal(t, float64(0), testutil.ToFloat64(backendUp))
}

func TestHeartbeatClose(t *testing.T) {
	hb := newHeartbeat(&beatActor{})
	hb.close()

	select {
	case <-hb.doneCh:
	default:
		t.Fatalf("heartbeat loop still running after close")
	}
}

func TestObserveStatusCode(t *testing.T) {
	before := testutil.ToFloat64(statusCodes.WithLabelValues("200"))
	observeStatusCode(200)
	observeStatusCode(200)
	assert.Equal(t, before+2, testutil.ToFloat64(statusCodes.WithLabelValues("200")))
}
