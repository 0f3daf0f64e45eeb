package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/pkg/config"
	"github.com/wonny/tradepilot/pkg/httputil"
	"github.com/wonny/tradepilot/pkg/logger"
)

type collector struct {
	mu    sync.Mutex
	items []flow.Notification
}

func (c *collector) Notify(n flow.Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

func TestMulti(t *testing.T) {
	a, b := &collector{}, &collector{}
	m := Multi{a, nil, b}

	n := flow.Notification{Message: "Flow completed", Severity: flow.SeveritySuccess}
	m.Notify(n)

	assert.Equal(t, []flow.Notification{n}, a.items)
	assert.Equal(t, []flow.Notification{n}, b.items)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogNotifier(logger.NewWithWriter(&buf, "debug"))

	l.Notify(flow.Notification{Message: "Select market failed", Severity: flow.SeverityError})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "notify", entry["component"])
	assert.Equal(t, "Select market failed", entry["message"])
}

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &event))
	return event
}

func TestHub_BroadcastsNotificationsAndStatus(t *testing.T) {
	h := NewHub(logger.Nop())
	conn := dialHub(t, h)

	h.Notify(flow.Notification{Message: "Auto mode initialized", Severity: flow.SeverityInfo, Duration: 3 * time.Second})
	event := readEvent(t, conn)
	assert.Equal(t, EventNotification, event["type"])
	data := event["data"].(map[string]interface{})
	assert.Equal(t, "Auto mode initialized", data["message"])
	assert.Equal(t, "info", data["severity"])

	h.PublishStatus(flow.Status{IsRunning: true, CurrentStepIndex: 2, TotalSteps: 9, Mode: flow.ModeAuto})
	event = readEvent(t, conn)
	assert.Equal(t, EventStatus, event["type"])
	data = event["data"].(map[string]interface{})
	assert.Equal(t, true, data["is_running"])
	assert.Equal(t, float64(2), data["current_step_index"])
}

func TestHub_ClientDisconnect(t *testing.T) {
	h := NewHub(logger.Nop())
	conn := dialHub(t, h)

	conn.Close()
	require.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		h.Broadcast(EventStatus, flow.Status{})
	})
}

func TestHub_Close(t *testing.T) {
	h := NewHub(logger.Nop())
	conn := dialHub(t, h)

	h.Close()
	assert.Equal(t, 0, h.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWebhook(t *testing.T) {
	var mu sync.Mutex
	var got []WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	hook := NewWebhook(server.URL, client, time.Second, logger.Nop())

	hook.Notify(flow.Notification{Message: "Flow completed", Severity: flow.SeveritySuccess, Duration: 3 * time.Second})
	hook.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "Flow completed", got[0].Message)
	assert.Equal(t, "success", got[0].Severity)
	assert.Equal(t, int64(3000), got[0].DurationMs)
}

func TestWebhook_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	hook := NewWebhook(server.URL, client, time.Second, logger.Nop())

	err := hook.Send(context.Background(), flow.Notification{Message: "x", Severity: flow.SeverityInfo})
	assert.EqualError(t, err, "webhook returned status 400")
}
