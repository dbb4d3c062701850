// Package controller owns the plan request lifecycle.
//
// A Controller validates raw input, issues one plan request per
// accepted Generate call, classifies the outcome and publishes state
// transitions. Only the most recently initiated request may change the
// visible state: every Generate takes the next sequence number and a
// completion is applied only if its number is still current.
package controller

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyplan/studyplan/internal/clock"
	"github.com/studyplan/studyplan/internal/logger"
	"github.com/studyplan/studyplan/internal/plan"
	"github.com/studyplan/studyplan/internal/planclient"
	"github.com/studyplan/studyplan/internal/validate"
)

// DefaultSuccessFlagTTL is how long the success flag stays raised.
const DefaultSuccessFlagTTL = 5 * time.Second

// ErrSuperseded is returned by Generate when a newer call started before
// this one completed. Its result was discarded.
var ErrSuperseded = errors.New("request superseded by a newer one")

// Fetcher performs the plan request. *planclient.Client implements it.
type Fetcher interface {
	Generate(ctx context.Context, req validate.Request) (*plan.Response, error)
}

type Options struct {
	Fetcher Fetcher
	Clock   clock.Clock
	// SuccessFlagTTL defaults to DefaultSuccessFlagTTL.
	SuccessFlagTTL time.Duration
	// BaseURL is quoted in the unreachable message.
	BaseURL string
	Logger  *logger.Logger
}

type Controller struct {
	fetcher Fetcher
	clock   clock.Clock
	ttl     time.Duration
	baseURL string
	log     *logger.Logger

	mu        sync.Mutex
	state     State
	version   uint64
	flagTimer clock.Timer
	subs      map[int]func(State)
	nextSub   int

	// publishMu serializes deliveries. delivered is the version of the
	// last snapshot handed to subscribers; older ones are dropped.
	publishMu sync.Mutex
	delivered uint64

	// beforeDeliver, when set, runs between releasing mu and delivering.
	beforeDeliver func(State)
}

func New(opts Options) (*Controller, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher required")
	}
	clk := opts.Clock
	if clk == nil {
		clk = &clock.RealClock{}
	}
	ttl := opts.SuccessFlagTTL
	if ttl == 0 {
		ttl = DefaultSuccessFlagTTL
	}
	if ttl < 0 {
		return nil, fmt.Errorf("success flag ttl must be positive, got %s", ttl)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		fetcher: opts.Fetcher,
		clock:   clk,
		ttl:     ttl,
		baseURL: opts.BaseURL,
		log:     log,
		subs:    make(map[int]func(State)),
	}, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every state transition and returns
// a function that removes it. Callbacks run outside the controller lock,
// possibly from the success flag timer's goroutine, so fn must be safe
// for concurrent use. Deliveries are serialized and never go back in
// time: a snapshot older than one already delivered is skipped. fn may
// read the controller but must not call Generate synchronously.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Generate validates in and, if it is accepted, requests a plan.
// It blocks until the request completes.
//
// The returned State is the snapshot after this call's last transition.
// The error is a *Failure when this attempt failed, ErrSuperseded when a
// newer Generate started first, and nil on success.
func (c *Controller) Generate(ctx context.Context, in Input) (State, error) {
	req, err := validate.Validate(in.Subjects, in.Hours, in.DaysPerWeek)
	if err != nil {
		return c.rejectInput(err)
	}

	requestID := uuid.NewString()
	c.mu.Lock()
	c.stopFlagLocked()
	c.state = State{
		Phase: PhaseSubmitting,
		Seq:   c.state.Seq + 1,
	}
	seq := c.state.Seq
	c.unlockAndPublish()
	c.log.Debug("plan request started", "seq", seq, "request_id", requestID, "subjects", len(req.Subjects()))

	resp, err := c.fetcher.Generate(planclient.WithRequestID(ctx, requestID), req)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty response", plan.ErrMalformed)
	}

	c.mu.Lock()
	if seq != c.state.Seq {
		current := c.state
		c.mu.Unlock()
		c.log.Debug("dropping stale plan response", "seq", seq, "current", current.Seq, "request_id", requestID)
		return current, ErrSuperseded
	}

	if err != nil {
		f := c.classify(ctx, err)
		c.state.Phase = PhaseFailure
		c.state.Failure = f
		c.log.Warn("plan request failed", "seq", seq, "request_id", requestID, "kind", f.Kind, "status", f.StatusCode, "error", err)
		snap := c.unlockAndPublish()
		return snap, f
	}

	c.state.Phase = PhaseSuccess
	c.state.Model = plan.NewModel(*resp)
	c.state.SuccessFlag = true
	c.flagTimer = c.clock.AfterFunc(c.ttl, func() { c.lowerFlag(seq) })
	c.log.Debug("plan request succeeded", "seq", seq, "request_id", requestID, "days", c.state.Model.DayCount())
	return c.unlockAndPublish(), nil
}

// Close stops the pending success flag timer, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopFlagLocked()
}

// rejectInput records a validation failure. It counts as the newest
// generate: any request still in flight is superseded and the success
// flag drops, but the phase never passes through Submitting and the
// current plan, if any, is left alone.
func (c *Controller) rejectInput(err error) (State, error) {
	f := &Failure{Kind: KindValidation, Message: err.Error()}
	var rej *validate.Rejection
	if errors.As(err, &rej) {
		f.Message = rej.Message
	}

	c.mu.Lock()
	c.stopFlagLocked()
	c.state.Seq++
	c.state.Phase = PhaseFailure
	c.state.Failure = f
	c.state.SuccessFlag = false
	c.log.Debug("plan input rejected", "seq", c.state.Seq, "message", f.Message)
	return c.unlockAndPublish(), f
}

func (c *Controller) classify(ctx context.Context, err error) *Failure {
	var (
		terr *planclient.TransportError
		herr *planclient.HTTPError
	)
	switch {
	case errors.As(err, &herr):
		return &Failure{
			Kind:       KindServerRejected,
			StatusCode: herr.StatusCode,
			Message:    herr.Message(),
			Malformed:  herr.MalformedRequest(),
		}
	case errors.Is(err, plan.ErrMalformed):
		return &Failure{
			Kind:        KindServerRejected,
			Message:     "The plan service returned an unusable response: " + err.Error(),
			InvalidBody: true,
		}
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return &Failure{Kind: KindUnreachable, Message: "Request cancelled before the plan service answered"}
	case errors.As(err, &terr):
		return &Failure{Kind: KindUnreachable, Message: c.unreachableMessage(terr)}
	default:
		return &Failure{Kind: KindUnreachable, Message: c.unreachableMessage(nil)}
	}
}

func (c *Controller) unreachableMessage(terr *planclient.TransportError) string {
	base := c.baseURL
	if terr != nil && terr.BaseURL != "" {
		base = terr.BaseURL
	}
	msg := "Plan service unreachable"
	if terr != nil && terr.Timeout() {
		msg = "Plan service did not respond in time"
	}
	if base == "" {
		return msg + ". Check that the service is running (studyplan serve)."
	}
	return fmt.Sprintf("%s at %s. Check that the service is running (studyplan serve --addr %s).", msg, base, hostPort(base))
}

// lowerFlag is the success flag timer callback for request seq.
func (c *Controller) lowerFlag(seq uint64) {
	c.mu.Lock()
	if seq != c.state.Seq || !c.state.SuccessFlag {
		c.mu.Unlock()
		return
	}
	c.state.SuccessFlag = false
	c.flagTimer = nil
	c.unlockAndPublish()
}

func (c *Controller) stopFlagLocked() {
	if c.flagTimer != nil {
		c.flagTimer.Stop()
		c.flagTimer = nil
	}
	c.state.SuccessFlag = false
}

// unlockAndPublish releases c.mu, then hands the snapshot to subscribers
// unless a newer one has already been delivered.
func (c *Controller) unlockAndPublish() State {
	c.version++
	v := c.version
	snap := c.state
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	hook := c.beforeDeliver
	c.mu.Unlock()

	if hook != nil {
		hook(snap)
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if v <= c.delivered {
		c.log.Debug("skipping stale state delivery", "seq", snap.Seq, "phase", snap.Phase)
		return snap
	}
	c.delivered = v
	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

func hostPort(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
