// Package devws is an optional, observation-only WebSocket endpoint that
// streams the coordinator's outbound events as JSON. It exists purely for
// local debugging (spec.md's events are otherwise delivered in-process) and
// is wired up only when a host enables it explicitly; it never accepts
// input from the socket.
package devws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lockstep/coordinator/pkg/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type frame struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// Inspector fans outbound events out to every connected WebSocket client.
// It implements events.Sink so it can be registered alongside the host's
// real event consumer via a multi-sink wrapper (see multiSink in
// cmd/coordinator).
type Inspector struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewInspector returns an Inspector. A nil logger defaults to zap.NewNop().
func NewInspector(logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{log: logger, clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection as a listener until it disconnects.
func (ins *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ins.log.Warn("devws upgrade failed", zap.Error(err))
		return
	}
	ins.mu.Lock()
	ins.clients[conn] = struct{}{}
	ins.mu.Unlock()

	defer func() {
		ins.mu.Lock()
		delete(ins.clients, conn)
		ins.mu.Unlock()
		conn.Close()
	}()

	// The socket is write-only from the server's perspective; read the
	// (discarded) control frames so the client's close handshake resolves.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (ins *Inspector) broadcast(kind string, data interface{}) {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if len(ins.clients) == 0 {
		return
	}
	payload, err := json.Marshal(frame{Kind: kind, Data: data})
	if err != nil {
		ins.log.Warn("devws marshal failed", zap.Error(err))
		return
	}
	for conn := range ins.clients {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			ins.log.Debug("devws write failed, dropping client", zap.Error(err))
			go conn.Close()
			delete(ins.clients, conn)
		}
	}
}

func (ins *Inspector) OnTickUpdate(e events.TickUpdate)                 { ins.broadcast("tick_update", e) }
func (ins *Inspector) OnStateChanged(e events.SimulationStateChanged)   { ins.broadcast("state_changed", e) }
func (ins *Inspector) OnClientDisconnect(e events.ClientDisconnect)     { ins.broadcast("client_disconnect", e) }
func (ins *Inspector) OnClientReconnect(e events.ClientReconnect)       { ins.broadcast("client_reconnect", e) }
func (ins *Inspector) OnSessionFault(e events.SessionFault) {
	ins.broadcast("session_fault", map[string]string{"reason": e.Reason.Error()})
}
