package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Upgrader is shared by every channel subscription endpoint. CheckOrigin is
// permissive here because authentication already happened over the
// cookie/query-param session before the upgrade is attempted.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades the connection, subscribes it to a channel and blocks
// until the connection closes. Call it from an http.HandlerFunc after the
// caller has already been authenticated and confirmed as a channel member.
func Serve(broker *Broker, w http.ResponseWriter, r *http.Request, channelID, userID int64) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(broker, conn, channelID, userID)
	broker.Subscribe(client)

	go client.WritePump()
	client.ReadPump()
	return nil
}
