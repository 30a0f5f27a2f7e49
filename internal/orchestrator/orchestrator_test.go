package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/navigate"
	"github.com/jobsweep/jobsweep/internal/scraper"
)

type fakeSessions struct {
	ensureErrs   []error
	recoverErr   error
	fatal        bool
	state        scraper.SessionState
	ensureCalls  int
	recoverCalls int
	closed       bool
}

func (f *fakeSessions) EnsureReady(ctx context.Context) (scraper.Page, error) {
	f.ensureCalls++
	if f.fatal {
		return nil, scraper.ErrSessionFatal
	}
	if len(f.ensureErrs) > 0 {
		err := f.ensureErrs[0]
		f.ensureErrs = f.ensureErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.state = scraper.StateReady
	return nil, nil
}

func (f *fakeSessions) Recover(ctx context.Context) (scraper.Page, error) {
	f.recoverCalls++
	if f.recoverErr != nil {
		f.fatal = true
		f.state = scraper.StateFatal
		return nil, f.recoverErr
	}
	f.state = scraper.StateReady
	return nil, nil
}

func (f *fakeSessions) IsDisconnect(err error) bool {
	return err != nil && strings.Contains(err.Error(), "target closed")
}

func (f *fakeSessions) State() scraper.SessionState {
	if f.state == "" {
		return scraper.StateUninitialized
	}
	return f.state
}

func (f *fakeSessions) Close() { f.closed = true }

type fakeLoader struct {
	errs     map[string]error
	outcomes map[string]navigate.Outcome
	visited  []scraper.SearchUnit
}

func (f *fakeLoader) LoadUnit(ctx context.Context, p scraper.Page, unit scraper.SearchUnit) (navigate.Outcome, error) {
	f.visited = append(f.visited, unit)
	if err := f.errs[unit.String()]; err != nil {
		return navigate.Outcome{}, err
	}
	if o, ok := f.outcomes[unit.String()]; ok {
		return o, nil
	}
	return navigate.Outcome{Kind: navigate.KindReady, Items: 1}, nil
}

type fakeBuilder struct {
	records map[string][]scraper.JobRecord
	errs    map[string]error
	calls   int
}

func (f *fakeBuilder) Unit(ctx context.Context, p scraper.Page, unit scraper.SearchUnit) ([]scraper.JobRecord, error) {
	f.calls++
	if err := f.errs[unit.String()]; err != nil {
		return nil, err
	}
	if recs, ok := f.records[unit.String()]; ok {
		return recs, nil
	}
	return []scraper.JobRecord{{ID: "4100000000", Title: "Engineer"}}, nil
}

type fakeIngestor struct {
	inserted map[string]int
	errs     map[string]error
	units    []scraper.SearchUnit
}

func (f *fakeIngestor) Ingest(ctx context.Context, unit scraper.SearchUnit, records []scraper.JobRecord) (int, error) {
	f.units = append(f.units, unit)
	if err := f.errs[unit.String()]; err != nil {
		return 0, err
	}
	if n, ok := f.inserted[unit.String()]; ok {
		return n, nil
	}
	return len(records), nil
}

type fakeCapturer struct {
	tags []string
	path string
}

func (f *fakeCapturer) Capture(ctx context.Context, p scraper.Page, unit scraper.SearchUnit, tag string) string {
	f.tags = append(f.tags, tag)
	return f.path
}

type fakeLimiter struct {
	delays      int
	budgetAfter int
	checks      int
}

func (f *fakeLimiter) Delay(ctx context.Context) { f.delays++ }

func (f *fakeLimiter) BudgetExceeded() bool {
	f.checks++
	return f.budgetAfter > 0 && f.checks > f.budgetAfter
}

type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type harness struct {
	sessions *fakeSessions
	loader   *fakeLoader
	builder  *fakeBuilder
	ingestor *fakeIngestor
	capturer *fakeCapturer
	limiter  *fakeLimiter
	orch     *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		sessions: &fakeSessions{},
		loader:   &fakeLoader{errs: map[string]error{}, outcomes: map[string]navigate.Outcome{}},
		builder:  &fakeBuilder{records: map[string][]scraper.JobRecord{}, errs: map[string]error{}},
		ingestor: &fakeIngestor{inserted: map[string]int{}, errs: map[string]error{}},
		capturer: &fakeCapturer{},
		limiter:  &fakeLimiter{},
	}
	h.orch = New(
		h.sessions, h.loader, h.builder, h.ingestor,
		h.capturer, h.limiter,
		&tickingClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		zap.NewNop(),
	)
	return h
}

func TestRunVisitsMatrixInInputOrder(t *testing.T) {
	h := newHarness()
	terms := []string{"golang", "rust"}
	locations := []scraper.Location{{Name: "Berlin", GeoID: 1}, {Name: "Madrid", GeoID: 2}}

	summary, err := h.orch.Run(context.Background(), terms, locations)
	require.NoError(t, err)

	want := []string{"golang @ Berlin", "golang @ Madrid", "rust @ Berlin", "rust @ Madrid"}
	require.Len(t, h.loader.visited, len(want))
	for i, unit := range h.loader.visited {
		assert.Equal(t, want[i], unit.String())
	}
	assert.Equal(t, 4, summary.TotalExtracted)
	assert.Equal(t, 4, summary.TotalIngested)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, 4, h.limiter.delays, "every unit is followed by a delay")
	assert.True(t, h.sessions.closed)
}

func TestRunRejectsEmptyInput(t *testing.T) {
	h := newHarness()

	_, err := h.orch.Run(context.Background(), nil, []scraper.Location{{Name: "Berlin", GeoID: 1}})
	assert.ErrorIs(t, err, scraper.ErrInvalidInput)

	_, err = h.orch.Run(context.Background(), []string{"golang"}, nil)
	assert.ErrorIs(t, err, scraper.ErrInvalidInput)

	assert.Empty(t, h.loader.visited)
}

func TestFirstLaunchFailurePropagates(t *testing.T) {
	h := newHarness()
	h.sessions.ensureErrs = []error{errors.New("chrome executable not found")}

	summary, err := h.orch.Run(context.Background(),
		[]string{"golang"}, []scraper.Location{{Name: "Berlin", GeoID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome executable not found")
	assert.Empty(t, summary.Errors)
	assert.True(t, h.sessions.closed)
}

func TestLaterSessionFailureIsRecordedNotRaised(t *testing.T) {
	h := newHarness()
	h.sessions.ensureErrs = []error{nil, errors.New("tab unavailable")}
	locations := []scraper.Location{{Name: "Berlin", GeoID: 1}, {Name: "Madrid", GeoID: 2}}

	summary, err := h.orch.Run(context.Background(), []string{"golang"}, locations)
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, scraper.PhaseNavigation, summary.Errors[0].Phase)
	assert.Equal(t, "golang @ Madrid", summary.Errors[0].Unit.String())
}

func TestDisconnectTriggersSingleRecoveryBeforeNextUnit(t *testing.T) {
	h := newHarness()
	h.loader.errs["golang @ Berlin"] = scraper.NewUnitError(
		scraper.PhaseReadiness, errors.New("target closed mid-wait"))
	locations := []scraper.Location{{Name: "Berlin", GeoID: 1}, {Name: "Madrid", GeoID: 2}}

	summary, err := h.orch.Run(context.Background(), []string{"golang"}, locations)
	require.NoError(t, err)

	assert.Equal(t, 1, h.sessions.recoverCalls)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, scraper.PhaseReadiness, summary.Errors[0].Phase)

	// The second unit ran on the recovered session.
	assert.Equal(t, 1, summary.TotalExtracted)
	assert.Equal(t, 1, summary.TotalIngested)
}

func TestPermanentRecoveryFailureFailsRemainingUnits(t *testing.T) {
	h := newHarness()
	h.loader.errs["golang @ Berlin"] = errors.New("target closed")
	h.sessions.recoverErr = errors.New("chrome will not start")
	locations := []scraper.Location{
		{Name: "Berlin", GeoID: 1},
		{Name: "Madrid", GeoID: 2},
		{Name: "Lisbon", GeoID: 3},
	}

	summary, err := h.orch.Run(context.Background(), []string{"golang"}, locations)
	require.NoError(t, err, "a dead session never raises past the first unit")

	// One record per unit from the failure point onward, nothing extra
	// for the recovery attempt itself.
	require.Len(t, summary.Errors, 3)
	assert.Equal(t, 1, h.sessions.recoverCalls)
	for _, rec := range summary.Errors[1:] {
		assert.Equal(t, scraper.StateFatal, rec.SessionState)
		assert.Contains(t, rec.Message, scraper.ErrSessionFatal.Error())
	}
	assert.Zero(t, summary.TotalExtracted)
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	h := newHarness()
	h.loader.outcomes["golang @ Berlin"] = navigate.Outcome{
		Kind:  navigate.KindEmpty,
		Shots: []string{"/tmp/shots/empty.png"},
	}

	summary, err := h.orch.Run(context.Background(),
		[]string{"golang"}, []scraper.Location{{Name: "Berlin", GeoID: 1}})
	require.NoError(t, err)

	assert.Empty(t, summary.Errors)
	assert.Zero(t, h.builder.calls, "extraction is skipped for empty pages")
	assert.Empty(t, h.ingestor.units)
	assert.Equal(t, []string{"/tmp/shots/empty.png"}, summary.Screenshots)
	assert.Zero(t, h.sessions.recoverCalls)
	assert.Equal(t, 1, h.limiter.delays, "empty units still pay the delay")
}

func TestExtractedNeverBelowIngested(t *testing.T) {
	h := newHarness()
	h.builder.records["golang @ Berlin"] = []scraper.JobRecord{
		{ID: "4100000001", Title: "A"},
		{ID: "4100000002", Title: "B"},
		{ID: "4100000003", Title: "C"},
	}
	h.ingestor.inserted["golang @ Berlin"] = 2

	summary, err := h.orch.Run(context.Background(),
		[]string{"golang"}, []scraper.Location{{Name: "Berlin", GeoID: 1}})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalExtracted)
	assert.Equal(t, 2, summary.TotalIngested)
	assert.GreaterOrEqual(t, summary.TotalExtracted, summary.TotalIngested)
}

func TestIngestFailureRecordedWithoutRecovery(t *testing.T) {
	h := newHarness()
	h.ingestor.errs["golang @ Berlin"] = errors.New("ingest returned 503")
	locations := []scraper.Location{{Name: "Berlin", GeoID: 1}, {Name: "Madrid", GeoID: 2}}

	summary, err := h.orch.Run(context.Background(), []string{"golang"}, locations)
	require.NoError(t, err)

	require.Len(t, summary.Errors, 1)
	assert.Equal(t, scraper.PhaseIngest, summary.Errors[0].Phase)
	assert.Zero(t, h.sessions.recoverCalls, "an ingest failure is not a browser problem")

	// Extraction counted even though dispatch failed.
	assert.Equal(t, 2, summary.TotalExtracted)
	assert.Equal(t, 1, summary.TotalIngested)
}

func TestMixedRunSummary(t *testing.T) {
	h := newHarness()
	h.builder.records["golang @ Berlin"] = []scraper.JobRecord{
		{ID: "4100000001", Title: "A"},
		{ID: "4100000002", Title: "B"},
	}
	h.ingestor.inserted["golang @ Berlin"] = 1
	h.loader.errs["golang @ Madrid"] = scraper.NewUnitError(
		scraper.PhaseReadiness, errors.New("results list never appeared"))
	locations := []scraper.Location{{Name: "Berlin", GeoID: 1}, {Name: "Madrid", GeoID: 2}}

	summary, err := h.orch.Run(context.Background(), []string{"golang"}, locations)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalExtracted)
	assert.Equal(t, 1, summary.TotalIngested)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, scraper.PhaseReadiness, summary.Errors[0].Phase)
	assert.Equal(t, "golang @ Madrid", summary.Errors[0].Unit.String())
}

func TestBudgetExceededEndsRunEarly(t *testing.T) {
	h := newHarness()
	h.limiter.budgetAfter = 2
	locations := []scraper.Location{
		{Name: "Berlin", GeoID: 1},
		{Name: "Madrid", GeoID: 2},
		{Name: "Lisbon", GeoID: 3},
	}

	summary, err := h.orch.Run(context.Background(), []string{"golang"}, locations)
	require.NoError(t, err, "an early stop is a clean stop")

	assert.Len(t, h.loader.visited, 2)
	assert.Equal(t, 2, summary.TotalExtracted)
	assert.Empty(t, summary.Errors)
}

func TestUnitFailureCapturesDiagnosticSnapshot(t *testing.T) {
	h := newHarness()
	h.capturer.path = "/tmp/shots/golang_berlin_unit-error.png"
	h.loader.errs["golang @ Berlin"] = scraper.NewUnitError(
		scraper.PhaseNavigation, errors.New("net::ERR_NAME_NOT_RESOLVED"))

	summary, err := h.orch.Run(context.Background(),
		[]string{"golang"}, []scraper.Location{{Name: "Berlin", GeoID: 1}})
	require.NoError(t, err)

	assert.Equal(t, []string{"unit-error"}, h.capturer.tags)
	assert.Equal(t, []string{h.capturer.path}, summary.Screenshots)
}
