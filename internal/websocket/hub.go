package websocket

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Hub is the process-wide board -> subscribers registry and the fan-out point.
// It is sharded by board: one busy board never stalls delivery on another.
// Lock order is always registry then shard.
type Hub struct {
	mu     sync.RWMutex
	boards map[uint]*boardChannel
	log    zerolog.Logger
}

type boardChannel struct {
	mu   sync.Mutex
	subs map[*Session]bool
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		boards: make(map[uint]*boardChannel),
		log:    log,
	}
}

// Subscribe is idempotent; subscribing twice is a no-op. The channel is
// created lazily on first subscription.
func (h *Hub) Subscribe(boardID uint, s *Session) {
	if s == nil || boardID == 0 {
		return
	}

	h.mu.Lock()
	ch, ok := h.boards[boardID]
	if !ok {
		ch = &boardChannel{subs: make(map[*Session]bool)}
		h.boards[boardID] = ch
	}
	ch.mu.Lock()
	ch.subs[s] = true
	ch.mu.Unlock()
	h.mu.Unlock()
}

// Unsubscribe is idempotent; removing a non-member is a no-op. The channel is
// pruned on the unsubscribe that empties it.
func (h *Hub) Unsubscribe(boardID uint, s *Session) {
	if s == nil {
		return
	}

	h.mu.Lock()
	ch, ok := h.boards[boardID]
	if ok {
		ch.mu.Lock()
		delete(ch.subs, s)
		empty := len(ch.subs) == 0
		ch.mu.Unlock()
		if empty {
			delete(h.boards, boardID)
		}
	}
	h.mu.Unlock()
}

// Publish delivers data to every current subscriber of the board except
// exclude, if set. Delivery is a non-blocking enqueue onto each subscriber's
// outbound queue; a stalled socket never delays the other subscribers, it gets
// its session shed instead. Holding the shard lock across the enqueue loop is
// what preserves per-board publish order for every subscriber.
func (h *Hub) Publish(boardID uint, data []byte, exclude *Session) {
	h.mu.RLock()
	ch, ok := h.boards[boardID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	ch.mu.Lock()
	for sub := range ch.subs {
		if sub == exclude {
			continue
		}
		if !sub.TrySend(data) {
			h.log.Warn().Uint("board_id", boardID).Uint("user_id", sub.UserID()).
				Msg("outbound queue full, shedding slow subscriber")
			go sub.Close()
		}
	}
	ch.mu.Unlock()
}

func (h *Hub) IsSubscribed(boardID uint, s *Session) bool {
	h.mu.RLock()
	ch, ok := h.boards[boardID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.subs[s]
}

func (h *Hub) SubscriberCount(boardID uint) int {
	h.mu.RLock()
	ch, ok := h.boards[boardID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subs)
}

func (h *Hub) BoardCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.boards)
}

// Stats snapshots subscriber counts per board, for the info endpoint.
func (h *Hub) Stats() map[uint]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.MapValues(h.boards, func(ch *boardChannel, _ uint) int {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return len(ch.subs)
	})
}
