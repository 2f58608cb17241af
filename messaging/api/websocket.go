package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"comicdao/comicdao"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = pongWait / 2

	// Maximum message size allowed from peer.
	maxMessageSize = 5242880
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocket serialises writes to a connection.
type WebSocket struct {
	conn  *websocket.Conn
	mutex deadlock.Mutex
}

func (ws *WebSocket) WriteJSON(v interface{}) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.conn.WriteJSON(v)
}

func (ws *WebSocket) WriteMessage(t int, b []byte) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.conn.WriteMessage(t, b)
}

// handleWebsocket accepts ["EVENT", <signed event>] and replies ["OK", <id>, <accepted>, <message>].
// Messages are handled in the order they arrive on the connection.
func (s *server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		comicdao.LogCLI("failed to upgrade websocket", 3)
		return
	}
	ws := &WebSocket{conn: conn}
	done := make(chan struct{})

	// pinger
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					comicdao.LogCLI("couldn't ping, exterminating socket", 3)
					conn.Close()
					return
				}
			}
		}
	}()

	// reader
	go func() {
		defer func() {
			close(done)
			conn.Close()
		}()
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					comicdao.LogCLI("unexpected close of websocket", 3)
				}
				return
			}
			if reply := s.handleFrame(message); reply != nil {
				if err := ws.WriteJSON(reply); err != nil {
					comicdao.LogCLI(err.Error(), 3)
					return
				}
			}
		}
	}()
}

func (s *server) handleFrame(message []byte) []interface{} {
	var request []jsoniter.RawMessage
	if err := json.Unmarshal(message, &request); err != nil {
		return []interface{}{"NOTICE", "could not decode message"}
	}
	if len(request) < 2 {
		return []interface{}{"NOTICE", "request has less than 2 parameters"}
	}
	var typ string
	if err := json.Unmarshal(request[0], &typ); err != nil {
		return []interface{}{"NOTICE", "could not decode message type"}
	}
	switch typ {
	case "EVENT":
		e, err := decodeEvent(request[1])
		if err != nil {
			return []interface{}{"NOTICE", err.Error()}
		}
		resp, err := s.submit(e)
		if err != nil {
			return []interface{}{"OK", e.ID, false, err.Error()}
		}
		return []interface{}{"OK", e.ID, true, resp.Mind + ":" + resp.Hash}
	}
	return []interface{}{"NOTICE", "unknown message type " + typ}
}
