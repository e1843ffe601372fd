package client_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/forensic-case-api/client"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

func TestWatchDeliversEvents(t *testing.T) {
	api := newFakeAPI(t)
	upgrader := websocket.Upgrader{}
	api.Router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(models.LiveEvent{Type: "occurrence.updated", OccurrenceID: "o1"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})
	c, _ := newClient(t, api, "u1", policy.RoleOfficialExpert)

	var events []models.LiveEvent
	err := c.Watch(context.Background(), func(e models.LiveEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	assert.Equal(t, []models.LiveEvent{{Type: "occurrence.updated", OccurrenceID: "o1"}}, events)

	reqs := api.RequestsTo("/live")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{c.Session().Token()}, reqs[0].Query["token"])
}

func TestWatchStopsWithContext(t *testing.T) {
	api := newFakeAPI(t)
	upgrader := websocket.Upgrader{}
	api.Router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	c, _ := newClient(t, api, "u1", policy.RoleOfficialExpert)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := c.Watch(ctx, func(models.LiveEvent) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchNeedsSession(t *testing.T) {
	c, err := client.New("http://localhost:1")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Watch(context.Background(), func(models.LiveEvent) {}), client.ErrNotLoggedIn)
}
