package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andrewtitoo/ReMissionCapstone/internal/api"
	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
	"github.com/andrewtitoo/ReMissionCapstone/internal/session"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	id    string
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.id, f.err
}

func (f *fakeResolver) resolveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeGateway scripts FetchLogs per call number, starting at 1.
type fakeGateway struct {
	mu         sync.Mutex
	fetchCalls int
	fetch      func(call int) ([]model.SymptomLogEntry, error)

	summary    model.InsightSummary
	summaryErr error
	reply      string
	replyErr   error
}

func (f *fakeGateway) FetchLogs(ctx context.Context, id string) ([]model.SymptomLogEntry, error) {
	f.mu.Lock()
	f.fetchCalls++
	call := f.fetchCalls
	fetch := f.fetch
	f.mu.Unlock()
	return fetch(call)
}

func (f *fakeGateway) FetchInsightSummary(ctx context.Context, id string) (model.InsightSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeGateway) SendBotMessage(ctx context.Context, id string, text string) (string, error) {
	return f.reply, f.replyErr
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func fastConfig() session.Config {
	return session.Config{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func someEntries() []model.SymptomLogEntry {
	return []model.SymptomLogEntry{
		{
			LoggedAt:   time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC),
			PainLevel:  8,
			SleepHours: 5,
			FlareUp:    true,
		},
		{
			LoggedAt:   time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC),
			PainLevel:  2,
			SleepHours: 8,
		},
	}
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(int) ([]model.SymptomLogEntry, error) {
		return someEntries(), nil
	}}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	if o.State() != session.StateUninitialized {
		t.Fatalf("expected uninitialized, got %s", o.State())
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if o.State() != session.StateReady {
		t.Fatalf("expected ready, got %s", o.State())
	}
	if o.Identity() != "42" {
		t.Fatalf("unexpected identity %q", o.Identity())
	}

	snapshot, ok := o.Snapshot()
	if !ok {
		t.Fatalf("expected snapshot in ready state")
	}
	if snapshot.TotalEntries != 2 || snapshot.FlareDays != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if snapshot.GeneratedAt.IsZero() {
		t.Fatalf("snapshot must carry a generation time")
	}
	// Entries arrived newest first; the latest (a flare) drives insights.
	insights := o.Insights()
	if len(insights) == 0 || insights[0].Tag != model.InsightFlareWarning {
		t.Fatalf("expected flare warning first, got %+v", insights)
	}
}

func TestRunIdentityFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(int) ([]model.SymptomLogEntry, error) {
		t.Error("fetch must not run when identity resolution fails")
		return nil, nil
	}}
	resolver := &fakeResolver{err: &api.Failure{Kind: api.KindServiceUnavailable, Op: "provision-identity"}}
	o := session.NewOrchestrator(gw, resolver, fastConfig())

	if err := o.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if o.State() != session.StateIdentityFailed {
		t.Fatalf("expected identity_failed, got %s", o.State())
	}
	if o.ErrorMessage() == "" {
		t.Fatalf("expected a user-facing message")
	}
	if _, ok := o.Snapshot(); ok {
		t.Fatalf("failed state must not expose a snapshot")
	}
}

func TestRunRetriesOnlyServiceUnavailable(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(call int) ([]model.SymptomLogEntry, error) {
		if call < 3 {
			return nil, &api.Failure{Kind: api.KindServiceUnavailable, Op: "fetch-logs"}
		}
		return someEntries(), nil
	}}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if o.State() != session.StateReady {
		t.Fatalf("expected ready after retries, got %s", o.State())
	}
	if gw.calls() != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", gw.calls())
	}
}

func TestRunDoesNotRetryMalformed(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(int) ([]model.SymptomLogEntry, error) {
		return nil, &api.Failure{Kind: api.KindMalformed, Op: "fetch-logs"}
	}}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	if err := o.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if gw.calls() != 1 {
		t.Fatalf("malformed responses must not be retried, got %d attempts", gw.calls())
	}
	if o.State() != session.StateDataFailed {
		t.Fatalf("expected data_failed, got %s", o.State())
	}
}

func TestRunExhaustedRetriesFails(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(int) ([]model.SymptomLogEntry, error) {
		return nil, &api.Failure{Kind: api.KindServiceUnavailable, Op: "fetch-logs"}
	}}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	if err := o.Run(context.Background()); !api.IsKind(err, api.KindServiceUnavailable) {
		t.Fatalf("expected service_unavailable, got %v", err)
	}
	if gw.calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", gw.calls())
	}
	if o.State() != session.StateDataFailed {
		t.Fatalf("expected data_failed, got %s", o.State())
	}
	if o.ErrorMessage() != "Failed to load data. Please try again later." {
		t.Fatalf("unexpected message %q", o.ErrorMessage())
	}
}

func TestRunNoDataReachesReady(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(int) ([]model.SymptomLogEntry, error) {
		return nil, &api.Failure{Kind: api.KindNoData, Op: "fetch-logs"}
	}}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if o.State() != session.StateReady {
		t.Fatalf("an empty history is not a failure, got %s", o.State())
	}
	snapshot, ok := o.Snapshot()
	if !ok || snapshot.HasAverages {
		t.Fatalf("expected empty snapshot, got ok=%v %+v", ok, snapshot)
	}
	insights := o.Insights()
	if len(insights) != 1 || insights[0].Tag != model.InsightNoData {
		t.Fatalf("expected single no-data insight, got %+v", insights)
	}
}

func TestRetryFetchKeepsIdentity(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(call int) ([]model.SymptomLogEntry, error) {
		if call == 1 {
			return nil, &api.Failure{Kind: api.KindMalformed, Op: "fetch-logs"}
		}
		return someEntries(), nil
	}}
	resolver := &fakeResolver{id: "42"}
	o := session.NewOrchestrator(gw, resolver, fastConfig())

	if err := o.Run(context.Background()); err == nil {
		t.Fatalf("expected first run to fail")
	}
	if o.State() != session.StateDataFailed {
		t.Fatalf("expected data_failed, got %s", o.State())
	}
	if o.Identity() != "42" {
		t.Fatalf("data failure must retain the resolved identity")
	}

	if err := o.RetryFetch(context.Background()); err != nil {
		t.Fatalf("RetryFetch: %v", err)
	}
	if o.State() != session.StateReady {
		t.Fatalf("expected ready, got %s", o.State())
	}
	if resolver.resolveCalls() != 1 {
		t.Fatalf("retry must not re-resolve identity, got %d resolutions", resolver.resolveCalls())
	}
}

func TestRetryFetchWithoutIdentity(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{fetch: func(int) ([]model.SymptomLogEntry, error) { return nil, nil }}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	if err := o.RetryFetch(context.Background()); !errors.Is(err, session.ErrIdentityUnresolved) {
		t.Fatalf("expected ErrIdentityUnresolved, got %v", err)
	}
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{fetch: func(int) ([]model.SymptomLogEntry, error) {
		close(entered)
		<-release
		return someEntries(), nil
	}}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	<-entered
	o.Close()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := o.Snapshot(); ok {
		t.Fatalf("closed session must not expose the late snapshot")
	}
	if o.State() == session.StateReady {
		t.Fatalf("late result must not flip a closed session to ready")
	}
	if err := o.Run(context.Background()); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSupersededRunIsDiscarded(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	stale := []model.SymptomLogEntry{{
		LoggedAt:  time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC),
		PainLevel: 1,
	}}
	gw := &fakeGateway{fetch: func(call int) ([]model.SymptomLogEntry, error) {
		if call == 1 {
			close(entered)
			<-release
			return stale, nil
		}
		return someEntries(), nil
	}}
	o := session.NewOrchestrator(gw, &fakeResolver{id: "42"}, fastConfig())

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()
	<-entered

	// Second run supersedes the blocked first one and completes.
	if err := o.RetryFetch(context.Background()); err != nil {
		t.Fatalf("RetryFetch: %v", err)
	}
	snapshot, ok := o.Snapshot()
	if !ok || snapshot.TotalEntries != 2 {
		t.Fatalf("expected snapshot from the superseding run, got ok=%v %+v", ok, snapshot)
	}

	// The first run's late result must not overwrite it.
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	snapshot, ok = o.Snapshot()
	if !ok || snapshot.TotalEntries != 2 {
		t.Fatalf("stale result overwrote the current view: ok=%v %+v", ok, snapshot)
	}
}

func TestUserMessageMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind api.Kind
		want string
	}{
		{api.KindServiceUnavailable, "Failed to load data. Please try again later."},
		{api.KindNotFound, "User ID not found. Please refresh the app."},
		{api.KindInvalidIdentity, "User ID not found. Please refresh the app."},
		{api.KindNoData, "No data available to display."},
	}
	for _, tc := range cases {
		err := &api.Failure{Kind: tc.kind, Op: "op"}
		if got := session.UserMessage(err); got != tc.want {
			t.Fatalf("kind %s: got %q, want %q", tc.kind, got, tc.want)
		}
	}
	if got := session.UserMessage(errors.New("boom")); got != "Something went wrong. Please try again." {
		t.Fatalf("unexpected fallback message %q", got)
	}
}
