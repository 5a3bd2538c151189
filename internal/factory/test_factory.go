package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/gamelobby/internal/dependencies/mocks"
	"github.com/mcoot/gamelobby/internal/eventbus"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/auth"
	"github.com/mcoot/gamelobby/internal/storage/memory"
	"github.com/mcoot/gamelobby/internal/testutil"
)

// TestSecret signs tokens in test apps
const TestSecret = "test-secret-0123456789"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs

	// Events records everything published on the bus
	Events *eventbus.Recorder
}

// NewTestApp creates an App on in-memory storage with mocked clock and ids.
// Room passwords are hashed at the minimum bcrypt cost.
func NewTestApp() *TestApp {
	model.PasswordCost = bcrypt.MinCost

	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = TestSecret
	app := newWithDependencies(memory.New(), mockClock, mockIDs, authCfg, testutil.NopLogger())

	recorder := &eventbus.Recorder{}
	app.Bus.Subscribe(recorder)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
		Events:    recorder,
	}
}

// Token issues a bearer token for a principal, failing loudly on error
func (t *TestApp) Token(p model.Principal) string {
	token, err := t.AuthService.Issue(p)
	if err != nil {
		panic(err)
	}
	return token
}
