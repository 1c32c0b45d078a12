package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	apperrors "github.com/kurihiro0119/gitwaka-bot/internal/errors"
)

// fakeBotAPI records Bot API calls and answers with canned responses.
type fakeBotAPI struct {
	mu       sync.Mutex
	calls    []string
	forms    map[string][]map[string]string
	updates  string
	conflict bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.calls = append(f.calls, method)
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	if f.forms == nil {
		f.forms = map[string][]map[string]string{}
	}
	f.forms[method] = append(f.forms[method], form)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"GitWaka","username":"gitwaka_bot"}}`))
	case "getUpdates":
		if f.conflict {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":409,"description":"Conflict: can't use getUpdates method while webhook is active"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":` + f.updates + `}`))
	case "sendMessage":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":10,"date":0,"chat":{"id":42,"type":"private"}}}`))
	case "deleteWebhook", "answerCallbackQuery":
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func (f *fakeBotAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBotAPI) lastForm(method string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	forms := f.forms[method]
	if len(forms) == 0 {
		return nil
	}
	return forms[len(forms)-1]
}

func newTestTransport(t *testing.T, api *fakeBotAPI) Transport {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	tr, err := NewTelegramTransport(TelegramConfig{
		Token:              "123:abc",
		APIEndpoint:        server.URL + "/bot%s/%s",
		PollTimeoutSeconds: 1,
	})
	require.NoError(t, err)
	return tr
}

func TestTelegramFetchUpdates(t *testing.T) {
	api := &fakeBotAPI{updates: `[
		{"update_id":100,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"/status"}},
		{"update_id":101,"callback_query":{"id":"cb-1","from":{"id":42,"is_bot":false,"first_name":"Dev"},"data":"check_status",
			"message":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"}}}},
		{"update_id":102,"edited_message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"x"}}
	]`}
	tr := newTestTransport(t, api)

	events, err := tr.FetchUpdates(context.Background(), 100, 25)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, domain.Event{ID: 100, Type: domain.EventTypeText, ChatID: 42, Text: "/status"}, events[0])
	assert.Equal(t, domain.Event{ID: 101, Type: domain.EventTypeAction, ChatID: 42, ActionID: "cb-1", Token: "check_status"}, events[1])
	assert.Equal(t, domain.Event{ID: 102}, events[2])

	form := api.lastForm("getUpdates")
	assert.Equal(t, "100", form["offset"])
	assert.Equal(t, "25", form["timeout"])
}

func TestTelegramFetchUpdatesConflict(t *testing.T) {
	tr := newTestTransport(t, &fakeBotAPI{conflict: true})

	_, err := tr.FetchUpdates(context.Background(), 1, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransportConflict(err))
}

func TestTelegramSendPrompt(t *testing.T) {
	api := &fakeBotAPI{}
	tr := newTestTransport(t, api)

	err := tr.SendPrompt(context.Background(), 42, "pick", []domain.Action{{Label: "Check", Token: "check_status"}})
	require.NoError(t, err)

	form := api.lastForm("sendMessage")
	assert.Equal(t, "42", form["chat_id"])
	assert.Equal(t, "pick", form["text"])

	var markup struct {
		InlineKeyboard [][]struct {
			Text         string `json:"text"`
			CallbackData string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(form["reply_markup"]), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "Check", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "check_status", markup.InlineKeyboard[0][0].CallbackData)
}

func TestTelegramClearAndAck(t *testing.T) {
	api := &fakeBotAPI{}
	tr := newTestTransport(t, api)

	require.NoError(t, tr.ClearCompetingSubscription(context.Background()))
	require.NoError(t, tr.AckAction(context.Background(), "cb-1"))
	require.NoError(t, tr.SendText(context.Background(), 42, "hi"))

	assert.Equal(t, []string{"getMe", "deleteWebhook", "answerCallbackQuery", "sendMessage"}, api.methods())
	assert.Equal(t, "cb-1", api.lastForm("answerCallbackQuery")["callback_query_id"])
}

func TestTelegramResetUpdatesDropsPending(t *testing.T) {
	api := &fakeBotAPI{}
	tr := newTestTransport(t, api)

	require.NoError(t, tr.ClearCompetingSubscription(context.Background()))
	assert.Empty(t, api.lastForm("deleteWebhook")["drop_pending_updates"])

	require.NoError(t, tr.ResetUpdates(context.Background()))
	assert.Equal(t, "true", api.lastForm("deleteWebhook")["drop_pending_updates"])
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)

	require.NoError(t, n.SendText(context.Background(), 0, "report"))
	require.NoError(t, n.SendPrompt(context.Background(), 0, "pick", []domain.Action{{Label: "Check", Token: "t"}}))
	assert.Equal(t, "report\n\npick\n  [Check]\n\n", buf.String())
}
