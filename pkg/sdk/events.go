package sdk

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"
)

// Events connects to the daemon's change feed. An empty address follows
// every server. The channel closes when ctx is done or the connection drops.
func (c *Client) Events(ctx context.Context, address string) (<-chan ChangeEvent, error) {
	wsURL, err := c.GetWebSocketURL("/ws/events")
	if err != nil {
		return nil, err
	}
	if address != "" {
		wsURL += "?address=" + url.QueryEscape(address)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	events := make(chan ChangeEvent, 16)
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	go func() {
		defer close(events)
		defer stop()
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var ev ChangeEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
