// Package telemetry streams bus snapshots (internal/bus) to WebSocket
// clients: attitude, gyro bias, arming state, and alarm table, sent to every
// connected viewer on each Broadcast call.
//
// Grounded on PossumXI-Asgard_Arobi/Valkyrie's internal/livefeed/streamer.go
// (Upgrader/Client/broadcast-channel shape, WritePump/ReadPump goroutine
// pair, ping/pong keepalive), narrowed from Valkyrie's mission-clearance
// filtering (this core has one audience: a ground station) down to a plain
// fan-out broadcaster.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Snapshot is one tick's worth of flight-core state pushed to every
// connected client.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	RollDeg     float64   `json:"roll_deg"`
	PitchDeg    float64   `json:"pitch_deg"`
	YawDeg      float64   `json:"yaw_deg"`
	GyroBias    [3]float64 `json:"gyro_bias_deg_s"`
	ArmingState string    `json:"arming_state"`
	Alarms      map[string]string `json:"alarms"`
}

// Client is one connected WebSocket viewer.
type Client struct {
	conn *websocket.Conn
	send chan Snapshot
	id   string
}

// Streamer fans a Snapshot stream out to every registered Client.
type Streamer struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewStreamer builds a Streamer accepting connections from any origin, the
// way Valkyrie's LiveFeedStreamer does for its ground-station feed.
func NewStreamer(log *logrus.Logger) *Streamer {
	if log == nil {
		log = logrus.New()
	}
	return &Streamer{
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// HandleWebSocket upgrades an HTTP request and registers the resulting
// client, starting its read/write pumps.
func (s *Streamer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("telemetry: failed to upgrade websocket")
		return
	}
	client := &Client{conn: conn, send: make(chan Snapshot, 50), id: r.RemoteAddr}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	s.log.WithField("client", client.id).Info("telemetry client connected")

	ctx, cancel := context.WithCancel(context.Background())
	go s.writePump(ctx, client)
	go s.readPump(ctx, cancel, client)
}

// Broadcast pushes snap to every registered client's buffered channel,
// silently dropping the message for any client whose buffer is full
// rather than blocking the publisher.
func (s *Streamer) Broadcast(snap Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		select {
		case client.send <- snap:
		default:
		}
	}
}

func (s *Streamer) unregister(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
		s.log.WithField("client", client.id).Info("telemetry client disconnected")
	}
}

// ClientCount reports how many viewers are currently connected.
func (s *Streamer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

const pingInterval = 30 * time.Second

func (s *Streamer) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Streamer) readPump(ctx context.Context, cancel context.CancelFunc, c *Client) {
	defer func() {
		cancel()
		s.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).Debug("telemetry: read error")
			}
			return
		}
	}
}
