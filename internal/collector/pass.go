package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ambientctx/internal/cache"
	"github.com/sells-group/ambientctx/internal/geo"
	"github.com/sells-group/ambientctx/internal/model"
	"github.com/sells-group/ambientctx/internal/timeofday"
	"github.com/sells-group/ambientctx/pkg/ipgeo"
)

// Reasons recorded on a context's outcome.
const (
	ReasonLocateFailed = "locate_failed"
	ReasonCacheRead    = "cache_read"
	ReasonCacheWrite   = "cache_write"
	ReasonPanic        = "panic"
	ReasonInvalidState = "invalid_state"
)

// timestampLayout is UTC RFC 3339 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// pass is the in-flight state of one collection pass.
type pass struct {
	id      string
	started time.Time
	trail   []State

	timeCollected bool
	timeOfDay     model.TimeOfDay
	timeDetails   model.TimeDetails

	location       *model.Location
	classification *model.Classification
	fromCache      bool
	locateErr      error

	result model.UserContext
}

func (p *pass) trailNames() []string {
	names := make([]string, len(p.trail))
	for i, s := range p.trail {
		names[i] = s.String()
	}
	return names
}

// passError is an unexpected failure that degrades the whole pass.
type passError struct {
	reason string
	err    error
}

func (e *passError) Error() string { return e.err.Error() }
func (e *passError) Unwrap() error { return e.err }

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return eris.Wrap(err, "collector: panic")
	}
	return eris.New(fmt.Sprintf("collector: panic: %v", r))
}

func errInvalidState(s State) error {
	return eris.Errorf("collector: no transition from state %s", s)
}

// collectTime: Start -> TimeCollected. Cannot fail.
func (c *Collector) collectTime(p *pass) State {
	p.timeOfDay = timeofday.Classify(p.started.Hour())
	p.timeDetails = timeofday.Breakdown(p.started)
	p.timeCollected = true
	return StateTimeCollected
}

// checkCache: TimeCollected -> LocationResolved on a hit, LocationPending on a miss.
func (c *Collector) checkCache(ctx context.Context, p *pass) (State, error) {
	rec, err := c.cache.Get(ctx, cache.LocationKey)
	if err != nil {
		return StateTimeCollected, &passError{reason: ReasonCacheRead, err: err}
	}
	if rec == nil {
		return StateLocationPending, nil
	}

	loc := rec.Location
	p.location = &loc
	p.classification = model.ClassificationPtr(rec.Classification)
	p.fromCache = true
	zap.L().Debug("collector: session cache hit", zap.String("pass_id", p.id))
	return StateLocationResolved, nil
}

// resolveLocation: LocationPending -> LocationResolved or LocationFailed.
func (c *Collector) resolveLocation(ctx context.Context, p *pass) (State, error) {
	res, err := c.locator.Locate(ctx)
	if err != nil {
		zap.L().Warn("collector: ip geolocation failed", zap.String("pass_id", p.id), zap.Error(err))
		p.locateErr = err
		return StateLocationFailed, nil
	}

	class := c.classifier.Classify(ctx, res.Latitude, res.Longitude)
	loc := buildLocation(res, class)
	rec := model.CachedLocationRecord{Location: loc, Classification: class.Classification}

	if err := c.cache.Set(ctx, cache.LocationKey, rec); err != nil {
		return StateLocationPending, &passError{reason: ReasonCacheWrite, err: err}
	}

	p.location = &loc
	p.classification = model.ClassificationPtr(class.Classification)
	zap.L().Debug("collector: location resolved",
		zap.String("pass_id", p.id),
		zap.String("classification", string(class.Classification)),
		zap.String("source", class.Source),
	)
	return StateLocationResolved, nil
}

// buildLocation substitutes "Unknown" for any absent string field.
func buildLocation(res *ipgeo.Result, class geo.Result) model.Location {
	state := model.UnknownValue
	if class.State != nil && *class.State != "" {
		state = *class.State
	}
	return model.Location{
		Latitude:  res.Latitude,
		Longitude: res.Longitude,
		City:      orUnknown(res.City),
		Region:    orUnknown(res.Region),
		Country:   orUnknown(res.Country),
		Timezone:  orUnknown(res.Timezone),
		IP:        orUnknown(res.IP),
		State:     state,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return model.UnknownValue
	}
	return s
}

// assemble builds the published context for a pass that reached the end of
// the location phase.
func (c *Collector) assemble(p *pass) model.UserContext {
	finished := c.now()
	dur := finished.Sub(p.started).Milliseconds()

	uc := model.UserContext{
		PassID:               p.id,
		TimeOfDay:            p.timeOfDay,
		TimeDetails:          p.timeDetails,
		Location:             p.location,
		Classification:       p.classification,
		Device:               c.safeDevice(),
		Timestamp:            finished.UTC().Format(timestampLayout),
		CollectionDurationMS: &dur,
		FromCache:            p.fromCache,
		Outcome:              model.Outcome{Status: model.OutcomeComplete},
	}
	if p.locateErr != nil {
		uc.Outcome = model.Outcome{
			Status: model.OutcomeLocationUnavailable,
			Reason: ReasonLocateFailed,
			Detail: p.locateErr.Error(),
		}
	}
	return uc
}

// degraded builds the single terminal error context: time fields only.
func (c *Collector) degraded(p *pass, err error) model.UserContext {
	if !p.timeCollected {
		c.collectTime(p)
	}
	reason := ReasonPanic
	var pe *passError
	if errors.As(err, &pe) {
		reason = pe.reason
	}
	return model.UserContext{
		PassID:         p.id,
		TimeOfDay:      p.timeOfDay,
		TimeDetails:    p.timeDetails,
		Classification: model.ClassificationPtr(model.ClassUnknown),
		Device:         c.safeDevice(),
		Timestamp:      c.now().UTC().Format(timestampLayout),
		Error:          err.Error(),
		Outcome: model.Outcome{
			Status: model.OutcomeDegraded,
			Reason: reason,
			Detail: err.Error(),
		},
	}
}

// safeDevice recovers from a panicking device source with an empty snapshot.
func (c *Collector) safeDevice() (d model.Device) {
	defer func() {
		if r := recover(); r != nil {
			d = model.Device{}
		}
	}()
	return c.device()
}
