package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	monitorWriteWait      = 10 * time.Second
	monitorPongWait       = 60 * time.Second
	monitorPingPeriod     = (monitorPongWait * 9) / 10
	monitorMaxMessageSize = 4096
)

var monitorUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MonitorEvent is a client-reported integrity event during an active
// proctored session.
type MonitorEvent struct {
	Type     string                 `json:"type"`
	Detail   string                 `json:"detail,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// eventSeverity maps client event types onto flag severities. Unknown events
// are recorded as info so nothing the client reports is silently dropped.
var eventSeverity = map[string]model.FlagSeverity{
	"TAB_BLUR":            model.SeverityWarning,
	"FULLSCREEN_EXIT":     model.SeverityWarning,
	"WINDOW_RESIZE":       model.SeverityInfo,
	"COPY_PASTE_DETECTED": model.SeverityWarning,
	"MULTIPLE_DISPLAYS":   model.SeverityWarning,
	"DEVTOOLS_OPENED":     model.SeverityCritical,
	"HEARTBEAT":           "",
}

// ProctoringMonitor holds one websocket per active proctored session and
// turns client events into flags. A connection that stops sending heartbeats
// gets a warning flag when it drops.
type ProctoringMonitor struct {
	proctoring        *ProctoringService
	heartbeatInterval time.Duration

	mu      sync.Mutex
	clients map[string]*monitorClient
}

type monitorClient struct {
	conn          *websocket.Conn
	token         string
	lastHeartbeat time.Time
}

func NewProctoringMonitor(proctoring *ProctoringService, heartbeatInterval time.Duration) *ProctoringMonitor {
	return &ProctoringMonitor{
		proctoring:        proctoring,
		heartbeatInterval: heartbeatInterval,
		clients:           make(map[string]*monitorClient),
	}
}

// Serve upgrades the request and pumps events for the session behind token
// until the connection closes. The session must be ACTIVE.
func (m *ProctoringMonitor) Serve(w http.ResponseWriter, r *http.Request, token string) error {
	session, err := m.proctoring.GetByToken(token)
	if err != nil {
		return err
	}
	if session.Status != model.SessionActive {
		return invalidTransition(fmt.Sprintf("Session is not active (status: %s)", session.Status))
	}

	conn, err := monitorUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &monitorClient{
		conn:          conn,
		token:         token,
		lastHeartbeat: time.Now(),
	}

	m.mu.Lock()
	// A reconnect replaces the previous connection for the same session.
	if old, ok := m.clients[token]; ok {
		old.conn.Close()
	}
	m.clients[token] = client
	m.mu.Unlock()

	go m.writePump(client)
	go m.readPump(client)
	return nil
}

func (m *ProctoringMonitor) readPump(c *monitorClient) {
	defer func() {
		m.mu.Lock()
		// Only unregister if this connection still owns the slot; a
		// replacement may already have taken it over.
		if m.clients[c.token] == c {
			delete(m.clients, c.token)
		}
		m.mu.Unlock()
		c.conn.Close()

		if silence := time.Since(c.lastHeartbeat); silence > m.heartbeatInterval*2 {
			_ = m.proctoring.Flag(c.token, "HEARTBEAT_LOST", model.SeverityWarning,
				fmt.Sprintf("Monitor connection closed after %s without heartbeat", silence.Round(time.Second)),
				nil)
		}
	}()

	c.conn.SetReadLimit(monitorMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(monitorPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(monitorPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("proctoring monitor unexpected close",
					zap.Error(err), zap.String("token_prefix", prefix(c.token, 8)))
			}
			break
		}

		var event MonitorEvent
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		m.handleEvent(c, event)
	}
}

func (m *ProctoringMonitor) handleEvent(c *monitorClient, event MonitorEvent) {
	if event.Type == "HEARTBEAT" {
		c.lastHeartbeat = time.Now()
		return
	}

	severity, known := eventSeverity[event.Type]
	if !known {
		severity = model.SeverityInfo
	}

	description := event.Detail
	if description == "" {
		description = fmt.Sprintf("Client reported %s", event.Type)
	}

	if err := m.proctoring.Flag(c.token, event.Type, severity, description, event.Metadata); err != nil {
		logger.Log.Warn("failed to flag monitor event",
			zap.String("event", event.Type), zap.Error(err))
	}
}

func (m *ProctoringMonitor) writePump(c *monitorClient) {
	ticker := time.NewTicker(monitorPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for range ticker.C {
		c.conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
		if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}
