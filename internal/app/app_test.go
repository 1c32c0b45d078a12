package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/gitwaka-bot/internal/checker"
	"github.com/kurihiro0119/gitwaka-bot/internal/config"
	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/report"
)

// ============================================================
// Fakes
// ============================================================

type fakeTransport struct {
	mu      sync.Mutex
	calls   []string
	prompts []string
}

func (f *fakeTransport) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) SendText(context.Context, int64, string) error {
	f.record("sendText")
	return nil
}

func (f *fakeTransport) SendPrompt(_ context.Context, _ int64, text string, _ []domain.Action) error {
	f.record("sendPrompt")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	return nil
}

func (f *fakeTransport) FetchUpdates(context.Context, int64, int) ([]domain.Event, error) {
	f.record("fetch")
	return nil, nil
}

func (f *fakeTransport) ClearCompetingSubscription(context.Context) error {
	f.record("clear")
	return nil
}

func (f *fakeTransport) ResetUpdates(context.Context) error {
	f.record("reset")
	return nil
}

func (f *fakeTransport) AckAction(context.Context, string) error {
	f.record("ack")
	return nil
}

func (f *fakeTransport) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeCron struct {
	mu      sync.Mutex
	specs   []string
	started bool
	stopped bool
}

func (f *fakeCron) AddFunc(spec string, _ func()) (cron.EntryID, error) {
	f.specs = append(f.specs, spec)
	return cron.EntryID(len(f.specs)), nil
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type fakeStatus struct{}

func (fakeStatus) Today(context.Context) (*checker.Result, error) { return &checker.Result{}, nil }
func (fakeStatus) Run(context.Context, domain.Trigger) error      { return nil }

func testConfig() *config.Config {
	return &config.Config{
		TelegramChatID:     42,
		PollInterval:       time.Hour,
		PollTimeoutSeconds: 25,
		Timezone:           "UTC",
		StorageType:        "none",
	}
}

// ============================================================
// Tests
// ============================================================

func TestBotBootstrapsAndStops(t *testing.T) {
	transport := &fakeTransport{}
	c := &fakeCron{}
	var logs bytes.Buffer

	bot, err := NewBot(testConfig(), BotDeps{
		Transport: transport,
		Status:    fakeStatus{},
		Cron:      c,
		Logger:    NewLogger("info", "json", &logs),
	})
	require.NoError(t, err)
	assert.Len(t, c.specs, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.started
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}

	assert.Equal(t, []string{"reset", "sendPrompt"}, transport.snapshot())
	assert.Equal(t, []string{report.PromptText}, transport.prompts)
	assert.True(t, c.stopped)
	assert.Contains(t, logs.String(), `"msg":"bot started"`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "v", entry["k"])

	buf.Reset()
	NewLogger("debug", "text", &buf).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestOpenStorage(t *testing.T) {
	cfg := testConfig()
	store, err := OpenStorage(cfg)
	require.NoError(t, err)
	assert.Nil(t, store)

	cfg.StorageType = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "history.db")
	store, err = OpenStorage(cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())
}
