package sender

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/hmbot/core/reply"
)

// Transport delivers a reply to a destination on the messaging platform.
// Any error means the reply was not accepted.
type Transport interface {
	Send(ctx context.Context, to string, spec reply.Spec) error
}

// Recorder observes outbound results. A nil Recorder is allowed.
type Recorder interface {
	ObserveOutbound(kind, status string)
}

// Replier hands replies to the transport through the dispatcher so the
// inbound acknowledgement never waits on the network.
type Replier struct {
	transport Transport
	dispatch  *Dispatcher
	recorder  Recorder
}

// NewReplier wires a transport to a dispatcher.
func NewReplier(t Transport, d *Dispatcher, rec Recorder) *Replier {
	return &Replier{transport: t, dispatch: d, recorder: rec}
}

// Send validates spec and schedules its delivery to the given destination.
// It returns only validation and wiring errors; delivery failures are logged
// by the dispatcher.
func (r *Replier) Send(ctx context.Context, spec reply.Spec, to string) error {
	if r == nil || r.transport == nil || r.dispatch == nil {
		return errors.New("sender: replier not configured")
	}
	if to == "" {
		return errors.New("sender: empty destination")
	}
	if err := spec.Validate(); err != nil {
		r.observe(spec.Kind, "invalid")
		return fmt.Errorf("sender: %w", err)
	}

	action := "send." + string(spec.Kind)
	run := func(jobCtx context.Context) error {
		err := r.transport.Send(jobCtx, to, spec)
		if err != nil {
			r.observe(spec.Kind, classifyError(err))
		} else {
			r.observe(spec.Kind, "ok")
		}
		return err
	}

	r.dispatch.Submit(ctx, action, "messages", run)
	return nil
}

func (r *Replier) observe(kind reply.Kind, status string) {
	if r.recorder != nil {
		r.recorder.ObserveOutbound(string(kind), status)
	}
}
