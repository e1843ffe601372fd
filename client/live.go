package client

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/linesmerrill/forensic-case-api/models"
)

func (c *Client) liveURL(token string) string {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/live"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}

// Watch subscribes to the change feed and calls fn for every event until ctx
// is done or the connection drops. Screens use it to reload after changes
// made by other consoles.
func (c *Client) Watch(ctx context.Context, fn func(models.LiveEvent)) error {
	token := c.session.Token()
	if token == "" {
		return ErrNotLoggedIn
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.liveURL(token), nil)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Err: err}
		}
		return &APIError{Status: 0, Message: connectionErrorMessage, Err: err}
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var event models.LiveEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.log.Debugw("ignoring malformed live event", "error", err)
			continue
		}
		fn(event)
	}
}
