// Package collector runs collection passes and publishes the resulting UserContext.
package collector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/ambientctx/internal/broadcast"
	"github.com/sells-group/ambientctx/internal/cache"
	"github.com/sells-group/ambientctx/internal/device"
	"github.com/sells-group/ambientctx/internal/geo"
	"github.com/sells-group/ambientctx/internal/model"
	"github.com/sells-group/ambientctx/pkg/ipgeo"
)

// EventName is the name of the one-shot event fired when a context is ready.
const EventName = "userContextReady"

// Locator resolves the caller's public IP to a location.
type Locator interface {
	Locate(ctx context.Context) (*ipgeo.Result, error)
}

// Classifier classifies coordinates as urban, suburban or rural.
type Classifier interface {
	Classify(ctx context.Context, lat, lon float64) geo.Result
}

// Option configures a Collector.
type Option func(*Collector)

// WithOnDataReady registers a callback invoked synchronously with every
// published context, before the latest slot and event are updated.
func WithOnDataReady(fn func(model.UserContext)) Option {
	return func(c *Collector) {
		c.onReady = fn
	}
}

// WithClock overrides the time source. Local-time fields use the returned
// time's location.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithDevice overrides the device snapshot source.
func WithDevice(snapshot func() model.Device) Option {
	return func(c *Collector) {
		c.device = snapshot
	}
}

// Collector runs collection passes. Concurrent Collect calls share one
// in-flight pass.
type Collector struct {
	locator    Locator
	classifier Classifier
	cache      cache.Store
	events     *broadcast.Broadcaster[model.UserContext]

	onReady func(model.UserContext)
	now     func() time.Time
	device  func() model.Device

	flight singleflight.Group
}

// New creates a Collector.
func New(locator Locator, classifier Classifier, store cache.Store, opts ...Option) *Collector {
	c := &Collector{
		locator:    locator,
		classifier: classifier,
		cache:      store,
		events:     broadcast.New[model.UserContext](EventName),
		now:        time.Now,
		device:     func() model.Device { return device.Snapshot("ambientctx") },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs a pass in the background.
func (c *Collector) Start(ctx context.Context) {
	go c.Collect(ctx)
}

// Collect runs a pass, or joins the one in flight, and returns the published
// context. It always returns a context. Once started, a pass is not cancelled
// by ctx; its values are still passed through.
func (c *Collector) Collect(ctx context.Context) model.UserContext {
	v, _, shared := c.flight.Do("pass", func() (any, error) {
		return c.runPass(context.WithoutCancel(ctx)).result, nil
	})
	if shared {
		zap.L().Debug("collector: joined in-flight pass")
	}
	return v.(model.UserContext).Clone()
}

// Latest returns the most recently published context.
func (c *Collector) Latest() (model.UserContext, bool) {
	uc, ok := c.events.Latest()
	if !ok {
		return model.UserContext{}, false
	}
	return uc.Clone(), true
}

// OnReady calls fn exactly once: immediately if a context has been published,
// otherwise when the next one is.
func (c *Collector) OnReady(fn func(model.UserContext)) {
	c.events.Subscribe(func(uc model.UserContext) {
		notify("onReady subscriber", func() { fn(uc.Clone()) })
	})
}

// Wait blocks until a context is published or ctx is done.
func (c *Collector) Wait(ctx context.Context) (model.UserContext, error) {
	uc, err := c.events.Wait(ctx)
	if err != nil {
		return model.UserContext{}, err
	}
	return uc.Clone(), nil
}

// runPass drives one pass through the state machine and publishes the result.
func (c *Collector) runPass(ctx context.Context) *pass {
	p := &pass{id: uuid.New().String(), started: c.now(), trail: []State{StateStart}}
	log := zap.L().With(zap.String("pass_id", p.id))
	log.Debug("collection pass started")

	if err := c.drive(ctx, p); err != nil {
		log.Error("collection pass degraded", zap.Error(err))
		p.result = c.degraded(p, err)
	} else {
		p.result = c.assemble(p)
	}

	c.publish(p.result)
	p.trail = append(p.trail, StatePublished)

	log.Info("collection pass published",
		zap.String("outcome", string(p.result.Outcome.Status)),
		zap.Bool("from_cache", p.result.FromCache),
		zap.Strings("trail", p.trailNames()),
	)
	return p
}

// drive walks the states up to the end of the location phase. Panics become
// errors so the pass can still publish.
func (c *Collector) drive(ctx context.Context, p *pass) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &passError{reason: ReasonPanic, err: panicError(r)}
		}
	}()

	for state := StateStart; !state.terminalLocation(); {
		next, err := c.step(ctx, p, state)
		if err != nil {
			return err
		}
		p.trail = append(p.trail, next)
		state = next
	}
	return nil
}

// step applies the transition function for state.
func (c *Collector) step(ctx context.Context, p *pass, state State) (State, error) {
	switch state {
	case StateStart:
		return c.collectTime(p), nil
	case StateTimeCollected:
		return c.checkCache(ctx, p)
	case StateLocationPending:
		return c.resolveLocation(ctx, p)
	default:
		return state, &passError{reason: ReasonInvalidState, err: errInvalidState(state)}
	}
}

// publish fans the context out: callback, then latest slot and event.
func (c *Collector) publish(uc model.UserContext) {
	if c.onReady != nil {
		cb := uc.Clone()
		notify("onDataReady callback", func() { c.onReady(cb) })
	}
	n := c.events.Publish(uc)
	zap.L().Debug("collector: dispatched event",
		zap.String("event", c.events.Name()),
		zap.Int("subscribers", n),
	)
}

// notify runs a consumer, logging instead of propagating its panic.
func notify(consumer string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("collector: consumer panicked",
				zap.String("consumer", consumer),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
