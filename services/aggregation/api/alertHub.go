package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
)

// alertHub fans out the newly ingested alerts to the connected stream clients
type alertHub struct {
	mut     sync.Mutex
	clients map[Subscriber]struct{}
}

func newAlertHub() *alertHub {
	return &alertHub{
		clients: make(map[Subscriber]struct{}),
	}
}

func (hub *alertHub) register(client Subscriber) {
	hub.mut.Lock()
	hub.clients[client] = struct{}{}
	hub.mut.Unlock()
}

func (hub *alertHub) unregister(client Subscriber) {
	hub.mut.Lock()
	delete(hub.clients, client)
	hub.mut.Unlock()
}

func (hub *alertHub) numClients() int {
	hub.mut.Lock()
	defer hub.mut.Unlock()

	return len(hub.clients)
}

// broadcast sends every alert as a separate message. Clients failing a send are closed and removed.
// Sends happen outside the hub lock, a slow client only delays the current broadcast.
func (hub *alertHub) broadcast(alerts []common.StoredAlert) {
	if len(alerts) == 0 {
		return
	}

	payloads := make([][]byte, 0, len(alerts))
	for _, alert := range alerts {
		payload, err := json.Marshal(alert)
		if err != nil {
			log.Warn("failed to encode alert for the stream", "id", alert.ID, "error", err)
			continue
		}
		payloads = append(payloads, payload)
	}

	for _, client := range hub.snapshot() {
		for _, payload := range payloads {
			err := client.Send(payload)
			if err != nil {
				log.Debug("alert stream client dropped", "error", err)
				hub.unregister(client)
				client.Close()
				break
			}
		}
	}
}

func (hub *alertHub) snapshot() []Subscriber {
	hub.mut.Lock()
	defer hub.mut.Unlock()

	clients := make([]Subscriber, 0, len(hub.clients))
	for client := range hub.clients {
		clients = append(clients, client)
	}

	return clients
}

func (hub *alertHub) closeAll() {
	hub.mut.Lock()
	defer hub.mut.Unlock()

	for client := range hub.clients {
		client.Close()
		delete(hub.clients, client)
	}
}

// wsClient is a websocket stream client. Writes are serialized as the connection supports one writer.
type wsClient struct {
	mut          sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSClient(conn *websocket.Conn, writeTimeout time.Duration) *wsClient {
	return &wsClient{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Send writes a text message to the websocket connection, failing if the peer does not accept it in time
func (client *wsClient) Send(payload []byte) error {
	client.mut.Lock()
	defer client.mut.Unlock()

	err := client.conn.SetWriteDeadline(time.Now().Add(client.writeTimeout))
	if err != nil {
		return err
	}

	return client.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close terminates the connection
func (client *wsClient) Close() {
	_ = client.conn.Close()
}
