package bridge

import (
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

// pubHub fans every published byte slice out to every currently connected
// subscriber, dropping (and closing) any subscriber whose write fails.
type pubHub struct {
	ln net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newPubHub() *pubHub {
	return &pubHub{conns: make(map[net.Conn]struct{})}
}

func (h *pubHub) listenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.ln = ln
	go h.acceptLoop()
	return nil
}

func (h *pubHub) acceptLoop() {
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			return
		}
		h.mu.Lock()
		h.conns[conn] = struct{}{}
		h.mu.Unlock()
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("bridge: pub subscriber connected")
		go h.watch(conn)
	}
}

// watch detects a subscriber hanging up: PUB connections never receive
// anything from the client, so any read returning is a disconnect.
func (h *pubHub) watch(conn net.Conn) {
	buf := make([]byte, 1)
	_, _ = conn.Read(buf)
	h.drop(conn)
}

func (h *pubHub) drop(conn net.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()
}

func (h *pubHub) publish(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if _, err := conn.Write(data); err != nil {
			log.Debug().Err(err).Msg("bridge: pub subscriber write failed, dropping")
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
	return nil
}

func (h *pubHub) close() error {
	if h.ln != nil {
		_ = h.ln.Close()
	}
	h.mu.Lock()
	for conn := range h.conns {
		_ = conn.Close()
	}
	h.conns = nil
	h.mu.Unlock()
	return nil
}
