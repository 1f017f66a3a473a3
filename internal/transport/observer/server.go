// Package observer streams environment diagnostics to read-only WebSocket
// clients: per-object mutation outcomes, rewards, episode and save events.
// It sits outside the trainer contract; step replies never carry any of this.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meshgym.ai/internal/sim/env"
)

type Hub struct {
	log *log.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	out chan []byte
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: make(map[*subscriber]struct{}),
	}
}

type entry struct {
	Kind string `json:"kind"`
	V    any    `json:"v"`
}

// env.DiagSink. Broadcasts never block: a slow observer loses entries, the
// trainer path does not wait.

func (h *Hub) WriteEpisodeStart(v env.EpisodeStart) { h.broadcast("episode_start", v) }
func (h *Hub) WriteStep(v env.StepLogEntry)         { h.broadcast("step", v) }
func (h *Hub) WriteSave(v env.SaveLogEntry)         { h.broadcast("save", v) }

func (h *Hub) broadcast(kind string, v any) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return
	}
	b, err := json.Marshal(entry{Kind: kind, V: v})
	if err != nil {
		return
	}
	for s := range h.subs {
		select {
		case s.out <- b:
		default:
		}
	}
}

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub := &subscriber{out: make(chan []byte, 256)}
		h.mu.Lock()
		h.subs[sub] = struct{}{}
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
		}()

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b := <-sub.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop: observers send nothing meaningful; it exists to
		// notice the peer going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		close(done)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
