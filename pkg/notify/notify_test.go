package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quatton/podium/pkg/plog"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	sent map[int64][]string
	err  error
}

func (r *recorder) Notify(_ context.Context, userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[int64][]string{}
	}
	r.sent[userID] = append(r.sent[userID], text)
	return r.err
}

func TestAsyncDeliversInBackground(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, time.Second, nil)

	require.NoError(t, a.Notify(context.Background(), 7, "hello"))
	a.Wait()
	require.Equal(t, []string{"hello"}, rec.sent[7])
}

func TestAsyncSwallowsErrors(t *testing.T) {
	rec := &recorder{err: errors.New("blocked by user")}
	a := NewAsync(rec, time.Second, plog.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Notify(ctx, 7, "hello"))
	a.Wait()
	require.Len(t, rec.sent[7], 1)
}

func TestTelegramSendsMessage(t *testing.T) {
	var (
		mu     sync.Mutex
		chatID string
		text   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"id": 1, "is_bot": true, "first_name": "Podium", "username": "podium_bot"},
			})
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			mu.Lock()
			chatID, text = r.Form.Get("chat_id"), r.Form.Get("text")
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"result": map[string]any{
					"message_id": 10,
					"date":       0,
					"chat":       map[string]any{"id": 42, "type": "private"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tg, err := NewTelegramWithEndpoint("TOKEN", srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	require.Equal(t, "podium_bot", tg.Username())

	require.NoError(t, tg.Notify(context.Background(), 42, "New Activity Processed!"))
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "42", chatID)
	require.Equal(t, "New Activity Processed!", text)
}
