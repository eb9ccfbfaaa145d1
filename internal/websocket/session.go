package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"go-board/internal/auth"
)

// Session lifecycle. A connection only reaches StateActive after the principal
// resolver accepted its credential.
const (
	StateConnecting int32 = iota
	StateAuthenticated
	StateActive
	StateClosed
)

// Config bounds one connection's resource usage. A frame above MaxFrameBytes
// or an outbound queue past SendQueueDepth closes the session.
type Config struct {
	MaxFrameBytes  int64
	SendQueueDepth int
	IdleTimeout    time.Duration
	WriteTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxFrameBytes:  32768,
		SendQueueDepth: 256,
		IdleTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Session owns one client socket: its identity, its pumps, and its outbound
// queue. The hub owns the authoritative subscriber sets; the session keeps
// only the cleanup cache of boards it joined.
type Session struct {
	conn     *websocket.Conn
	hub      *Hub
	relay    *Relay
	identity *auth.Identity
	cfg      Config
	log      zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	mu     sync.Mutex
	boards map[uint]bool

	connectedAt time.Time
}

func NewSession(hub *Hub, relay *Relay, conn *websocket.Conn, identity *auth.Identity, cfg Config, log zerolog.Logger) *Session {
	s := &Session{
		conn:        conn,
		hub:         hub,
		relay:       relay,
		identity:    identity,
		cfg:         cfg,
		log:         log.With().Uint("user_id", identity.UserID).Logger(),
		send:        make(chan []byte, cfg.SendQueueDepth),
		done:        make(chan struct{}),
		boards:      make(map[uint]bool),
		connectedAt: time.Now(),
	}
	s.state.Store(StateAuthenticated)
	return s
}

func (s *Session) Identity() *auth.Identity {
	return s.identity
}

func (s *Session) UserID() uint {
	return s.identity.UserID
}

func (s *Session) State() int32 {
	return s.state.Load()
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// TrySend enqueues without blocking. False means the subscriber is too slow
// for its configured queue depth and should be shed.
func (s *Session) TrySend(data []byte) bool {
	if s.state.Load() == StateClosed {
		// Already torn down, drop quietly.
		return true
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Close is safe to call from any goroutine, any number of times. The pumps
// observe done and the read pump performs the actual teardown.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) trackBoard(boardID uint) {
	s.mu.Lock()
	s.boards[boardID] = true
	s.mu.Unlock()
}

func (s *Session) untrackBoard(boardID uint) {
	s.mu.Lock()
	delete(s.boards, boardID)
	s.mu.Unlock()
}

func (s *Session) trackedBoards() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.boards))
	for id := range s.boards {
		ids = append(ids, id)
	}
	return ids
}

// Run drives the session until the connection dies. The write pump gets its
// own goroutine; the read pump runs on the caller's.
func (s *Session) Run() {
	s.state.Store(StateActive)
	go s.writePump()
	s.readPump()
}

// readPump pumps inbound frames through the relay. Oversized frames make
// ReadMessage fail (gorilla closes the connection on read-limit violation),
// which lands in the teardown path like any other transport failure.
func (s *Session) readPump() {
	defer s.teardown()

	s.conn.SetReadLimit(s.cfg.MaxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))

		s.relay.Handle(s, raw)
	}
}

// writePump serializes all writes to the socket and keeps the peer alive with
// pings inside the idle window.
func (s *Session) writePump() {
	pingPeriod := s.cfg.IdleTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// teardown unsubscribes from every joined board before releasing the handle,
// so no dangling registry entries survive a disconnect.
func (s *Session) teardown() {
	s.state.Store(StateClosed)
	for _, boardID := range s.trackedBoards() {
		s.hub.Unsubscribe(boardID, s)
	}
	s.Close()
	s.conn.Close()
	s.log.Debug().Msg("session closed")
}
