package debug

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/logger"
)

const (
	clientBuffer = 8
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

// Stream fans grid snapshots out to websocket clients on the loopback
// interface. Slow clients drop frames instead of stalling Publish.
type Stream struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	dropped uint64
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see Handler
		},
		log:     logger.Named("stream"),
		clients: make(map[*client]struct{}),
	}
}

// Handler upgrades loopback requests and streams snapshots until the
// client goes away or the stream is closed.
func (s *Stream) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := &client{conn: conn, out: make(chan []byte, clientBuffer), done: make(chan struct{})}
		if !s.add(c) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
				time.Now().Add(time.Second))
			return
		}
		defer s.remove(c)
		s.log.Info("client connected", zap.String("remote", r.RemoteAddr))

		// Reader: only used to notice disconnects.
		go func() {
			defer c.close()
			for {
				_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-c.done:
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
					time.Now().Add(time.Second))
				s.log.Info("client disconnected", zap.String("remote", r.RemoteAddr))
				return
			case b := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					s.log.Debug("write failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
					return
				}
			}
		}
	}
}

func (s *Stream) add(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Stream) remove(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

// Publish encodes snap once and queues it for every client. Returns the
// number of clients it was queued for.
func (s *Stream) Publish(snap Snapshot) (int, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for c := range s.clients {
		select {
		case c.out <- b:
			n++
		default:
			s.dropped++
		}
	}
	return n, nil
}

// Clients returns the number of connected clients.
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped returns how many frames were dropped for slow clients.
func (s *Stream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close disconnects every client and refuses new ones.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		c.close()
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
