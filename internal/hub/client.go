package hub

import (
	"github.com/gorilla/websocket"
)

// observer is one connected dashboard connection. Outbound events go
// through a buffered channel drained by writePump so a slow observer
// never blocks a publisher.
type observer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// writePump writes queued events to the connection until the send
// channel is closed or a write fails.
func (o *observer) writePump() {
	defer o.conn.Close()
	for payload := range o.send {
		if err := o.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
