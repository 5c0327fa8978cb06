package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewHub(logger)
}

func dialHub(t *testing.T, srv *httptest.Server, tenantID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?tenant=" + tenantID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastScopedToTenant(t *testing.T) {
	hub := testHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	tenantA := uuid.New()
	tenantB := uuid.New()
	connA := dialHub(t, srv, tenantA)
	connB := dialHub(t, srv, tenantB)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	configID := uuid.New()
	hub.Broadcast(tenantA, Event{Type: EventTradeOpened, ConfigID: configID})

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := connA.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, EventTradeOpened, event.Type)
	assert.Equal(t, tenantA, event.TenantID)
	assert.Equal(t, configID, event.ConfigID)
	assert.False(t, event.Timestamp.IsZero())

	connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "other tenants must not receive the event")
}

func TestHubRejectsMissingTenant(t *testing.T) {
	hub := testHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub := testHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, uuid.New())
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNopBroadcasterDiscardsEvents(t *testing.T) {
	var b Broadcaster = NopBroadcaster{}
	assert.NotPanics(t, func() {
		b.Broadcast(uuid.New(), Event{Type: EventSignal})
	})
}
