package factory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/partyroom/internal/dependencies/mocks"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/oracle"
	"github.com/mcoot/partyroom/internal/storage/memory"
	"github.com/mcoot/partyroom/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Oracle     *StubOracle
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	stub := &StubOracle{}

	app := newWithDependencies(store, mockClock, mockRandom, stub, Config{}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Oracle:     stub,
	}
}

// StubOracle returns a canned verdict. With no verdict set it reports itself
// unavailable, so scoring falls back to the heuristic.
type StubOracle struct {
	mu      sync.Mutex
	verdict *oracle.Verdict
	calls   int
}

// SetVerdict sets the verdict returned by later calls
func (o *StubOracle) SetVerdict(v *oracle.Verdict) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdict = v
}

// Calls returns how many times the oracle was consulted
func (o *StubOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// Validate returns the canned verdict
func (o *StubOracle) Validate(ctx context.Context, req oracle.Request) (*oracle.Verdict, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.verdict == nil {
		return nil, model.ErrOracleUnavailable
	}
	return o.verdict, nil
}
