package factory

import (
	"time"

	"github.com/mcoot/wsgate/internal/dependencies/mocks"
	"github.com/mcoot/wsgate/internal/services/auth"
	"github.com/mcoot/wsgate/internal/storage/memory"
	"github.com/mcoot/wsgate/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDGen
	Transport *testutil.Transport
}

// NewTestApp creates an App configured for testing with mocked dependencies
// and an in-memory transport
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDGen()
	transport := testutil.NewTransport()

	authCfg := auth.DefaultConfig()
	// Keep password hashing fast in tests
	authCfg.BcryptCost = 4

	app, err := newWithDependencies(store, mockClock, mockIDs, transport, authCfg, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
		Transport: transport,
	}
}
