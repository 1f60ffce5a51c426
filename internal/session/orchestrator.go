// Package session coordinates identity resolution, data fetching,
// aggregation and insight generation for one view of the app.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/andrewtitoo/ReMissionCapstone/internal/analytics"
	"github.com/andrewtitoo/ReMissionCapstone/internal/api"
	"github.com/andrewtitoo/ReMissionCapstone/internal/insight"
	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
)

type State string

const (
	StateUninitialized     State = "uninitialized"
	StateResolvingIdentity State = "resolving_identity"
	StateFetchingData      State = "fetching_data"
	StateReady             State = "ready"
	StateIdentityFailed    State = "identity_failed"
	StateDataFailed        State = "data_failed"
)

var (
	ErrClosed             = errors.New("session is closed")
	ErrIdentityUnresolved = errors.New("identity has not been resolved")
)

// Gateway is the slice of the API client the orchestrator consumes.
type Gateway interface {
	FetchLogs(ctx context.Context, id string) ([]model.SymptomLogEntry, error)
	FetchInsightSummary(ctx context.Context, id string) (model.InsightSummary, error)
	SendBotMessage(ctx context.Context, id string, text string) (string, error)
}

// IdentityResolver is the slice of the identity store the orchestrator
// consumes.
type IdentityResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type Config struct {
	PainThreshold int
	RecentWindow  int

	// Fetch retry policy. Only ServiceUnavailable failures are retried;
	// the gateway itself stays retry-agnostic.
	MaxFetchAttempts int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxFetchAttempts <= 0 {
		c.MaxFetchAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
}

// Orchestrator drives one session: resolve identity, fetch logs,
// aggregate, generate insights, expose the result. A generation counter
// guards against late-arriving responses from a superseded run being
// applied to the current view.
type Orchestrator struct {
	gateway  Gateway
	resolver IdentityResolver
	cfg      Config

	mu         sync.Mutex
	generation uint64
	closed     bool
	state      State
	identity   string
	snapshot   model.AggregateSnapshot
	insights   []model.Insight
	userErr    string
}

func NewOrchestrator(gateway Gateway, resolver IdentityResolver, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		gateway:  gateway,
		resolver: resolver,
		cfg:      cfg,
		state:    StateUninitialized,
	}
}

// Run performs one full initialization: identity, data, aggregation,
// insights. A new Run supersedes any in-flight one; the superseded
// run's late results are discarded.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.generation++
	gen := o.generation
	o.state = StateResolvingIdentity
	o.snapshot = model.AggregateSnapshot{}
	o.insights = nil
	o.userErr = ""
	o.mu.Unlock()

	id, err := o.resolver.Resolve(ctx)
	if err != nil {
		log.Printf("session: identity resolution failed: %v", err)
		o.apply(gen, func() {
			o.state = StateIdentityFailed
			o.userErr = UserMessage(err)
		})
		return err
	}
	if !o.apply(gen, func() {
		o.identity = id
		o.state = StateFetchingData
	}) {
		return nil
	}

	return o.fetchAndAggregate(ctx, gen, id)
}

// RetryFetch re-enters FetchingData with the already-resolved identity.
// Valid from DataFailed (and Ready, for refresh); identity is never
// re-resolved.
func (o *Orchestrator) RetryFetch(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.identity == "" {
		o.mu.Unlock()
		return ErrIdentityUnresolved
	}
	o.generation++
	gen := o.generation
	id := o.identity
	o.state = StateFetchingData
	o.snapshot = model.AggregateSnapshot{}
	o.insights = nil
	o.userErr = ""
	o.mu.Unlock()

	return o.fetchAndAggregate(ctx, gen, id)
}

// Close tears the session down. In-flight responses arriving afterwards
// are discarded rather than applied to a stale view.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.generation++
}

func (o *Orchestrator) fetchAndAggregate(ctx context.Context, gen uint64, id string) error {
	entries, err := o.fetchLogsWithRetry(ctx, id)
	if err != nil && !api.IsKind(err, api.KindNoData) {
		log.Printf("session: fetch failed for user %s: %v", id, err)
		o.apply(gen, func() {
			o.state = StateDataFailed
			o.userErr = UserMessage(err)
		})
		return err
	}

	// NoData flows through as an empty sequence; the aggregation and
	// insight layers own the empty-state contract.
	sorted := analytics.SortByLoggedAt(entries)
	snapshot := analytics.BuildSnapshot(sorted, analytics.SnapshotOptions{
		PainThreshold: o.cfg.PainThreshold,
		RecentWindow:  o.cfg.RecentWindow,
	})
	snapshot.GeneratedAt = time.Now()
	insights := insight.Generate(snapshot, sorted)

	o.apply(gen, func() {
		o.state = StateReady
		o.snapshot = snapshot
		o.insights = insights
	})
	return nil
}

func (o *Orchestrator) fetchLogsWithRetry(ctx context.Context, id string) ([]model.SymptomLogEntry, error) {
	var lastErr error
	for attempt := 0; attempt < o.cfg.MaxFetchAttempts; attempt++ {
		if attempt > 0 {
			wait := withJitter(expBackoff(attempt-1, o.cfg.InitialBackoff, o.cfg.MaxBackoff))
			if !sleepWithContext(ctx, wait) {
				return nil, ctx.Err()
			}
		}
		entries, err := o.gateway.FetchLogs(ctx, id)
		if err == nil || !api.IsKind(err, api.KindServiceUnavailable) {
			return entries, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// apply runs fn under the lock only if the session is still on the
// given generation; otherwise the result belongs to a superseded run
// and is dropped.
func (o *Orchestrator) apply(gen uint64, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || gen != o.generation {
		log.Printf("session: discarding stale result (generation %d, current %d)", gen, o.generation)
		return false
	}
	fn()
	return true
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Identity() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.identity
}

// Snapshot returns the aggregate view; ok is false unless the session
// is Ready, so failed states never leak stale data.
func (o *Orchestrator) Snapshot() (model.AggregateSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateReady {
		return model.AggregateSnapshot{}, false
	}
	return o.snapshot, true
}

func (o *Orchestrator) Insights() []model.Insight {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateReady {
		return nil
	}
	out := make([]model.Insight, len(o.insights))
	copy(out, o.insights)
	return out
}

// ErrorMessage is the user-facing message for a failed state, empty
// otherwise.
func (o *Orchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.userErr
}

// UserMessage maps any error, gateway failures in particular, to the
// single message shown for it. Raw causes stay in the logs.
func UserMessage(err error) string {
	switch api.KindOf(err) {
	case api.KindServiceUnavailable:
		return "Failed to load data. Please try again later."
	case api.KindMalformed:
		return "The server sent an unexpected response. Please try again later."
	case api.KindNotFound, api.KindInvalidIdentity:
		return "User ID not found. Please refresh the app."
	case api.KindRejected:
		return "Some of the entered values were rejected. Please correct them and try again."
	case api.KindNoData:
		return "No data available to display."
	default:
		return "Something went wrong. Please try again."
	}
}
