package line

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/memohai/linerag/internal/assistant"
	"github.com/memohai/linerag/internal/config"
	"github.com/memohai/linerag/internal/media"
)

type fakeLineAPI struct {
	mu       sync.Mutex
	requests map[string][]map[string]any
	content  map[string][]byte
	status   int
}

func newFakeLineAPI(t *testing.T) (*fakeLineAPI, *Messenger) {
	t.Helper()
	api := &fakeLineAPI{requests: map[string][]map[string]any{}, content: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.LineConfig{
		ChannelSecret:      "secret",
		ChannelAccessToken: "token",
		APIEndpoint:        srv.URL,
		DataEndpoint:       srv.URL,
		TimeoutSeconds:     5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return api, NewMessenger(nil, client)
}

func (f *fakeLineAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"message":"failure"}`)
		return
	}
	if r.Header.Get("Authorization") != "Bearer token" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Authentication failed"}`)
		return
	}
	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/content") {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/bot/message/"), "/content")
		data, ok := f.content[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Not found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(data)
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.requests[r.URL.Path] = append(f.requests[r.URL.Path], body)
	_, _ = io.WriteString(w, `{}`)
}

func (f *fakeLineAPI) calls(path string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func TestReplyRendersText(t *testing.T) {
	t.Parallel()
	api, m := newFakeLineAPI(t)

	if err := m.Reply(context.Background(), "rt", assistant.TextReply{Text: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := api.calls("/v2/bot/message/reply")
	if len(calls) != 1 || calls[0]["replyToken"] != "rt" {
		t.Fatalf("reply calls = %+v", calls)
	}
	msgs := calls[0]["messages"].([]any)
	first := msgs[0].(map[string]any)
	if first["type"] != "text" || first["text"] != "hello" {
		t.Fatalf("message = %+v", first)
	}
}

func TestPushRendersCarousel(t *testing.T) {
	t.Parallel()
	api, m := newFakeLineAPI(t)

	err := m.Push(context.Background(), "C1", assistant.FilesReply{
		AltText: "2 file(s)",
		Files: []assistant.FileCard{
			{Title: "a.pdf", Subtitle: "12.0 KB", DeleteData: "action=delete_file&doc=x"},
			{Title: "b.pdf", DeleteData: "action=delete_file&doc=y"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := api.calls("/v2/bot/message/push")
	if len(calls) != 1 || calls[0]["to"] != "C1" {
		t.Fatalf("push calls = %+v", calls)
	}
	msg := calls[0]["messages"].([]any)[0].(map[string]any)
	if msg["type"] != "template" || msg["altText"] != "2 file(s)" {
		t.Fatalf("message = %+v", msg)
	}
	columns := msg["template"].(map[string]any)["columns"].([]any)
	if len(columns) != 2 {
		t.Fatalf("columns = %d", len(columns))
	}
	action := columns[0].(map[string]any)["actions"].([]any)[0].(map[string]any)
	if action["type"] != "postback" || action["data"] != "action=delete_file&doc=x" || action["label"] != deleteLabel {
		t.Fatalf("action = %+v", action)
	}
	if columns[1].(map[string]any)["text"] != "-" {
		t.Fatalf("empty subtitle should be replaced")
	}
}

func TestContentDownload(t *testing.T) {
	t.Parallel()
	api, m := newFakeLineAPI(t)
	api.content["m1"] = []byte("%PDF-1.7 body")

	data, err := m.Content(context.Background(), "m1", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "%PDF-1.7 body" {
		t.Fatalf("content = %q", data)
	}

	if _, err := m.Content(context.Background(), "m1", 4); !errors.Is(err, media.ErrAssetTooLarge) {
		t.Fatalf("want too large, got %v", err)
	}
	_, err = m.Content(context.Background(), "missing", 1024)
	if !errors.Is(err, assistant.ErrPlatformNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if assistant.Classify(err) != assistant.KindNotFound {
		t.Fatalf("classified as %s", assistant.Classify(err))
	}
}

func TestAPIErrorsMapToSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, assistant.ErrPlatformAuth},
		{http.StatusForbidden, assistant.ErrPlatformAuth},
		{http.StatusNotFound, assistant.ErrPlatformNotFound},
		{http.StatusTooManyRequests, assistant.ErrPlatformUnavailable},
		{http.StatusBadGateway, assistant.ErrPlatformUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			api, m := newFakeLineAPI(t)
			api.status = tt.status
			err := m.Reply(context.Background(), "rt", assistant.TextReply{Text: "x"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var apiErr *linebot.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.status {
				t.Fatalf("want wrapped APIError with code %d, got %v", tt.status, err)
			}
		})
	}
}

func TestRenderSplitsLongText(t *testing.T) {
	t.Parallel()
	msgs := render([]assistant.Reply{assistant.TextReply{Text: strings.Repeat("a\n", 4000)}})
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
}
