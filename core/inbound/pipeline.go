// Package inbound turns webhook messages into dialogue turns and replies.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m3rciful/hmbot/core/dedup"
	"github.com/m3rciful/hmbot/core/dialogue"
	"github.com/m3rciful/hmbot/core/leads"
	"github.com/m3rciful/hmbot/core/logger"
	"github.com/m3rciful/hmbot/core/notify"
	"github.com/m3rciful/hmbot/core/reply"
	"github.com/m3rciful/hmbot/core/session"
	"github.com/m3rciful/hmbot/core/whatsapp"
)

const component = "inbound"

// Drop reasons reported in Result.
const (
	DropDuplicate   = "duplicate"
	DropRateLimited = "rate_limited"
)

// ErrShuttingDown is logged when a message arrives after Shutdown began.
var ErrShuttingDown = errors.New("inbound: pipeline shutting down")

// Replier schedules a reply to a WhatsApp user.
type Replier interface {
	Send(ctx context.Context, spec reply.Spec, to string) error
}

// Submitter runs follow-up work off the request path.
type Submitter interface {
	Submit(ctx context.Context, action, endpoint string, run func(ctx context.Context) error)
}

// Recorder observes pipeline outcomes. A nil Recorder is allowed.
type Recorder interface {
	ObserveTransition(from, to string)
	ObserveCompleted(insuranceType string)
	ObserveHandleDuration(seconds float64)
	DedupHit()
	RateLimited()
}

// Options wires a Pipeline. Engine, Replier and Jobs are required.
type Options struct {
	Engine   *dialogue.Engine
	Replier  Replier
	Jobs     Submitter
	Deduper  dedup.Deduper
	Limiter  *RateLimiter
	Leads    leads.Repository
	Notifier notify.Notifier
	Recorder Recorder
}

// Result describes what Process did with a message.
type Result struct {
	Outcome dialogue.Outcome
	// Dropped is set when the message was not handed to the engine.
	Dropped string
}

// Pipeline processes one message at a time per sender and replies to it.
type Pipeline struct {
	opts Options
	now  func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New validates opts and fills optional collaborators.
func New(opts Options) (*Pipeline, error) {
	if opts.Engine == nil || opts.Replier == nil || opts.Jobs == nil {
		return nil, fmt.Errorf("inbound: engine, replier and jobs are required")
	}
	if opts.Deduper == nil {
		opts.Deduper = dedup.NewMemory(dedup.DefaultTTL)
	}
	if opts.Leads == nil {
		opts.Leads = leads.NewMemoryRepository()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	return &Pipeline{opts: opts, now: time.Now}, nil
}

// HandleMessage processes in on a background goroutine so the webhook can
// acknowledge immediately.
func (p *Pipeline) HandleMessage(ctx context.Context, in whatsapp.Inbound) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		logger.Warn(ctx, component, "message.refused",
			slog.String("message_id", in.MessageID),
			slog.String("err", ErrShuttingDown.Error()),
		)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Process(ctx, in)
	}()
}

// Process runs dedup, rate limiting, the dialogue turn and the reply for in.
func (p *Pipeline) Process(ctx context.Context, in whatsapp.Inbound) (res Result) {
	start := p.now()
	if logger.RIDFrom(ctx) == "" {
		ctx = logger.WithRID(ctx, logger.NewRID())
	}
	ctx = logger.WithMessageMeta(ctx, in.MessageID, in.From)
	ctx = logger.WithHandler(ctx, component)

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, component, "panic",
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	dup, err := p.opts.Deduper.Seen(ctx, in.MessageID)
	if err != nil {
		logger.Warn(ctx, component, "dedup.fail_open", slog.String("err", err.Error()))
	}
	if dup {
		p.recordDedup()
		logger.Info(ctx, component, "message.skipped", slog.String("status", DropDuplicate))
		return Result{Dropped: DropDuplicate}
	}

	if !p.opts.Limiter.Allow(in.From, start) {
		p.recordRateLimited()
		logger.Warn(ctx, component, "message.skipped", slog.String("status", DropRateLimited))
		return Result{Dropped: DropRateLimited}
	}

	out := p.opts.Engine.Handle(ctx, session.SenderID(in.From), in.Text)
	res.Outcome = out

	if err := p.opts.Replier.Send(ctx, out.Reply, in.From); err != nil {
		logger.Error(ctx, component, "reply.fail",
			slog.String("reply_kind", string(out.Reply.Kind)),
			slog.String("err", err.Error()),
		)
	}
	if out.Completed != nil {
		p.complete(ctx, *out.Completed)
	}

	took := time.Since(start)
	if p.opts.Recorder != nil {
		p.opts.Recorder.ObserveTransition(string(out.From), string(out.To))
		p.opts.Recorder.ObserveHandleDuration(took.Seconds())
	}
	logger.Info(ctx, component, "message.handled",
		slog.String("status", "ok"),
		slog.String("type", in.Type),
		slog.String("input", string(out.Input)),
		slog.String("state", string(out.To)),
		slog.String("from", string(out.From)),
		slog.String("reply_kind", string(out.Reply.Kind)),
		slog.Int("text_len", len(in.Text)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return res
}

// complete stores the finished request and alerts advisors off the request path.
func (p *Pipeline) complete(ctx context.Context, in dialogue.Intake) {
	req := leads.NewRequest(string(in.SenderID), in.FullName, in.NationalID, in.BirthDate, in.InsuranceType)
	if p.opts.Recorder != nil {
		p.opts.Recorder.ObserveCompleted(in.InsuranceType)
	}
	logger.Info(ctx, component, "request.completed",
		slog.String("id", req.ID.String()),
		slog.String("insurance_type", req.InsuranceType),
	)

	p.opts.Jobs.Submit(ctx, "lead.save", "policy_requests", func(jobCtx context.Context) error {
		return p.opts.Leads.Save(jobCtx, req)
	})
	p.opts.Jobs.Submit(ctx, "lead.notify", "advisors", func(jobCtx context.Context) error {
		return p.opts.Notifier.Notify(jobCtx, req)
	})
}

func (p *Pipeline) recordDedup() {
	if p.opts.Recorder != nil {
		p.opts.Recorder.DedupHit()
	}
}

func (p *Pipeline) recordRateLimited() {
	if p.opts.Recorder != nil {
		p.opts.Recorder.RateLimited()
	}
}

// Shutdown refuses new messages and waits for in-flight ones until ctx is done.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("inbound: shutdown: %w", ctx.Err())
	}
}
