package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	apperrors "github.com/kurihiro0119/gitwaka-bot/internal/errors"
	"github.com/kurihiro0119/gitwaka-bot/internal/report"
)

// ============================================================
// Fakes
// ============================================================

type fetchResult struct {
	events []domain.Event
	err    error
}

// fakeSource serves scripted fetch results in order. When block is set,
// FetchUpdates signals entered and waits for release.
type fakeSource struct {
	mu      sync.Mutex
	results []fetchResult
	offsets []int64
	clears  int
	acks    []string

	block   bool
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) FetchUpdates(_ context.Context, offset int64, _ int) ([]domain.Event, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	var res fetchResult
	if len(f.results) > 0 {
		res = f.results[0]
		f.results = f.results[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block {
		f.entered <- struct{}{}
		<-f.release
	}
	return res.events, res.err
}

func (f *fakeSource) ClearCompetingSubscription(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeSource) AckAction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, id)
	return nil
}

func (f *fakeSource) fetchOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.offsets...)
}

type fakeNotifier struct {
	mu      sync.Mutex
	texts   []string
	prompts []string
	actions [][]domain.Action
}

func (f *fakeNotifier) SendText(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeNotifier) SendPrompt(_ context.Context, _ int64, text string, actions []domain.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	f.actions = append(f.actions, actions)
	return nil
}

type fakeChecker struct {
	mu       sync.Mutex
	triggers []domain.Trigger
}

func (f *fakeChecker) Run(_ context.Context, trigger domain.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textEvent(id int64, text string) domain.Event {
	return domain.Event{ID: id, Type: domain.EventTypeText, ChatID: 42, Text: text}
}

func actionEvent(id int64, token string) domain.Event {
	return domain.Event{ID: id, Type: domain.EventTypeAction, ChatID: 42, ActionID: "cb", Token: token}
}

func newTestPoller(t *testing.T, cfg Config) *Poller {
	t.Helper()
	if cfg.Interval == 0 {
		cfg.Interval = time.Second
	}
	cfg.Logger = quietLogger()
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

// pollOnce runs one cycle and waits for it.
func pollOnce(t *testing.T, p *Poller) {
	t.Helper()
	done, started := p.Tick(context.Background())
	require.True(t, started)
	<-done
}

// ============================================================
// Tests
// ============================================================

func TestStatusFlow(t *testing.T) {
	src := &fakeSource{results: []fetchResult{
		{events: []domain.Event{textEvent(100, "/status")}},
		{events: []domain.Event{actionEvent(101, "check_status")}},
	}}
	n := &fakeNotifier{}
	checker := &fakeChecker{}
	commands, actions := StatusRoutes(n, checker)
	p := newTestPoller(t, Config{Source: src, Commands: commands, Actions: actions})

	pollOnce(t, p)
	assert.Equal(t, []string{report.PromptText}, n.prompts)
	assert.Equal(t, []domain.Action{{Label: report.PromptLabel, Token: "check_status"}}, n.actions[0])
	assert.Empty(t, checker.triggers)

	pollOnce(t, p)
	assert.Equal(t, []string{report.Checking}, n.texts)
	assert.Equal(t, []domain.Trigger{domain.TriggerChat}, checker.triggers)
	assert.Equal(t, []string{"cb"}, src.acks)

	assert.Equal(t, []int64{1, 101}, src.fetchOffsets())
	assert.Equal(t, int64(101), p.Offset())
}

func TestOffsetAdvancesPastFailingHandler(t *testing.T) {
	src := &fakeSource{results: []fetchResult{
		{events: []domain.Event{textEvent(7, "/boom"), textEvent(8, "/panic"), textEvent(9, "/ok")}},
		{},
	}}
	var handled []int64
	p := newTestPoller(t, Config{
		Source: src,
		Commands: map[string]Handler{
			"/boom":  func(context.Context, domain.Event) error { return errors.New("handler failed") },
			"/panic": func(context.Context, domain.Event) error { panic("handler panicked") },
			"/ok": func(_ context.Context, ev domain.Event) error {
				handled = append(handled, ev.ID)
				return nil
			},
		},
	})

	pollOnce(t, p)
	assert.Equal(t, []int64{9}, handled)
	assert.Equal(t, int64(9), p.Offset())

	pollOnce(t, p)
	assert.Equal(t, []int64{1, 10}, src.fetchOffsets())
}

func TestDispatchWrapsHandlerFailure(t *testing.T) {
	p := newTestPoller(t, Config{
		Source: &fakeSource{},
		Commands: map[string]Handler{
			"/boom": func(context.Context, domain.Event) error { return errors.New("handler failed") },
		},
	})

	err := p.dispatch(context.Background(), textEvent(5, "/boom"))
	require.Error(t, err)
	assert.True(t, apperrors.IsHandlerFailure(err))
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	src := &fakeSource{results: []fetchResult{{events: []domain.Event{
		textEvent(20, "hello"),
		textEvent(21, "/status@other_bot"),
		actionEvent(22, "unknown_token"),
		{ID: 23},
	}}}}
	n := &fakeNotifier{}
	checker := &fakeChecker{}
	commands, actions := StatusRoutes(n, checker)
	p := newTestPoller(t, Config{Source: src, Commands: commands, Actions: actions})

	pollOnce(t, p)
	assert.Empty(t, n.texts)
	assert.Empty(t, n.prompts)
	assert.Empty(t, checker.triggers)
	assert.Equal(t, int64(23), p.Offset())
}

func TestOffsetNeverDecreases(t *testing.T) {
	src := &fakeSource{results: []fetchResult{{events: []domain.Event{textEvent(50, "a"), textEvent(40, "b")}}}}
	p := newTestPoller(t, Config{Source: src})

	pollOnce(t, p)
	assert.Equal(t, int64(50), p.Offset())
}

func TestAllowedChat(t *testing.T) {
	stranger := textEvent(30, "/status")
	stranger.ChatID = 999
	src := &fakeSource{results: []fetchResult{{events: []domain.Event{stranger, textEvent(31, "/status")}}}}
	n := &fakeNotifier{}
	commands, actions := StatusRoutes(n, &fakeChecker{})
	p := newTestPoller(t, Config{Source: src, Commands: commands, Actions: actions, AllowedChatID: 42})

	pollOnce(t, p)
	assert.Len(t, n.prompts, 1)
	assert.Equal(t, int64(31), p.Offset())
}

func TestActionFromOtherChatIsAcknowledged(t *testing.T) {
	stranger := actionEvent(60, "check_status")
	stranger.ChatID = 999
	stranger.ActionID = "cb-stranger"
	src := &fakeSource{results: []fetchResult{{events: []domain.Event{stranger}}}}
	n := &fakeNotifier{}
	checker := &fakeChecker{}
	commands, actions := StatusRoutes(n, checker)
	p := newTestPoller(t, Config{Source: src, Commands: commands, Actions: actions, AllowedChatID: 42})

	pollOnce(t, p)
	assert.Equal(t, []string{"cb-stranger"}, src.acks)
	assert.Empty(t, n.texts)
	assert.Empty(t, checker.triggers)
	assert.Equal(t, int64(60), p.Offset())
}

func TestConflictClearsSubscriptionOnce(t *testing.T) {
	conflict := apperrors.NewTransportConflictError(errors.New("409 Conflict"))
	src := &fakeSource{results: []fetchResult{
		{events: []domain.Event{textEvent(5, "/status")}, err: conflict},
		{err: apperrors.NewTransportError("getUpdates", errors.New("timeout"))},
	}}
	n := &fakeNotifier{}
	commands, actions := StatusRoutes(n, &fakeChecker{})
	p := newTestPoller(t, Config{Source: src, Commands: commands, Actions: actions})

	pollOnce(t, p)
	assert.Equal(t, 1, src.clears)
	assert.Empty(t, n.prompts)
	assert.Equal(t, int64(0), p.Offset())

	// Other fetch errors are only logged.
	pollOnce(t, p)
	assert.Equal(t, 1, src.clears)
	assert.Equal(t, []int64{1, 1}, src.fetchOffsets())
}

func TestTickSkipsWhileCycleInFlight(t *testing.T) {
	src := &fakeSource{
		block:   true,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		results: []fetchResult{{events: []domain.Event{textEvent(3, "x")}}},
	}
	p := newTestPoller(t, Config{Source: src})

	done, started := p.Tick(context.Background())
	require.True(t, started)
	<-src.entered

	_, started = p.Tick(context.Background())
	assert.False(t, started)
	assert.Len(t, src.fetchOffsets(), 1)

	close(src.release)
	<-done

	src.mu.Lock()
	src.block = false
	src.mu.Unlock()

	pollOnce(t, p)
	assert.Equal(t, []int64{1, 4}, src.fetchOffsets())
}

func TestRunPollsOnEachTick(t *testing.T) {
	ticks := make(chan time.Time)
	stopped := make(chan struct{})
	src := &fakeSource{results: []fetchResult{
		{events: []domain.Event{textEvent(1, "x")}},
		{events: []domain.Event{textEvent(2, "y")}},
	}}
	p := newTestPoller(t, Config{
		Source: src,
		NewTicker: func(time.Duration) (<-chan time.Time, func()) {
			return ticks, func() { close(stopped) }
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- p.Run(ctx) }()

	ticks <- time.Now()
	require.Eventually(t, func() bool { return p.Offset() == 1 && !p.inFlight.Load() }, time.Second, 5*time.Millisecond)
	ticks <- time.Now()
	require.Eventually(t, func() bool { return p.Offset() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	<-stopped
	assert.Equal(t, []int64{1, 2}, src.fetchOffsets())
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Interval: time.Second})
	assert.Error(t, err)

	_, err = New(Config{Source: &fakeSource{}})
	assert.Error(t, err)

	_, err = New(Config{Source: &fakeSource{}, Interval: time.Second, Commands: map[string]Handler{"/status": nil}})
	assert.Error(t, err)

	_, err = New(Config{Source: &fakeSource{}, Interval: time.Second, Actions: map[string]Handler{"": func(context.Context, domain.Event) error { return nil }}})
	assert.Error(t, err)
}
