package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	defaultSendBuffer = 64
)

// ErrSubscriberGone is returned by Send once the connection is closed or the
// outbound buffer is full (slow consumer). Either way the hub drops the
// subscriber.
var ErrSubscriberGone = errors.New("subscriber gone or too slow")

// WSSubscriber adapts a websocket connection to the hub's Subscriber
// interface. Writes go through a buffered channel drained by a single writer
// goroutine, so Send never blocks on a slow peer.
type WSSubscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewWSSubscriber(conn *websocket.Conn, buffer int) *WSSubscriber {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	s := &WSSubscriber{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
	go s.writePump()
	return s
}

func (s *WSSubscriber) Send(msg []byte) error {
	select {
	case <-s.done:
		return ErrSubscriberGone
	default:
	}
	select {
	case s.send <- msg:
		return nil
	default:
		// Buffer full: the peer is not keeping up. Fail the send and let
		// the hub evict us rather than stall the publish.
		return ErrSubscriberGone
	}
}

func (s *WSSubscriber) Close() {
	s.once.Do(func() { close(s.done) })
}

// ReadLoop consumes inbound frames until the peer disconnects. Clients send
// nothing meaningful on these channels; reading only services keep-alives
// and detects the close.
func (s *WSSubscriber) ReadLoop() {
	defer s.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (s *WSSubscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
