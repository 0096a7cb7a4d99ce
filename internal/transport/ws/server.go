package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tendercraft.dev/internal/ledger"
	"tendercraft.dev/internal/protocol"
)

type Server struct {
	eng *ledger.Engine
	log *log.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// writeWait bounds a single write to a client, result queueing included.
const writeWait = 5 * time.Second

func NewServer(eng *ledger.Engine, logger *log.Logger) *Server {
	s := &Server{
		eng: eng,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[chan []byte]struct{}{},
	}
	return s
}

// Notify implements ledger.Notifier: fan out to subscribed connections.
// Non-blocking; a slow consumer misses events and must re-read the ledger.
func (s *Server) Notify(ev ledger.Event) {
	msg := protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Event:           ev,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

func (s *Server) subscribe(ch chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[ch] = struct{}{}
}

func (s *Server) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, ch)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		identity, subscribe := s.handshake(conn)
		if identity == "" {
			return
		}

		out := make(chan []byte, 256)
		if subscribe {
			s.subscribe(out)
			defer s.unsubscribe(out)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeOp {
				continue
			}
			var op protocol.OpMsg
			if err := json.Unmarshal(msg, &op); err != nil {
				continue
			}
			if op.ProtocolVersion != protocol.Version {
				s.send(out, resultErr(op.ReqID, protocol.ErrProtoBadRequest, "unsupported protocol version"))
				continue
			}
			s.send(out, s.dispatch(identity, op))
		}
	}
}

// send queues a RESULT for the writer. Unlike event fan-out, results are an
// acknowledgment the client waits on, so backpressure blocks up to the write
// deadline instead of dropping.
func (s *Server) send(out chan []byte, res protocol.ResultMsg) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-time.After(writeWait):
		s.log.Printf("ws: result dropped after %s, req=%s", writeWait, res.ReqID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (identity string, subscribe bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unsupported protocol version"), time.Now().Add(time.Second))
		return "", false
	}
	identity = strings.TrimSpace(hello.Identity)
	if identity == "" {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing identity"), time.Now().Add(time.Second))
		return "", false
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Identity:        identity,
		Params: protocol.LedgerParams{
			TenderServiceFee: s.eng.Tenders.ServiceFee(),
			BidServiceFee:    s.eng.Bids.ServiceFee(),
			TenderCount:      s.eng.Tenders.TenderCount(),
			BidCount:         s.eng.Bids.BidCount(),
		},
	}
	b, _ := json.Marshal(welcome)
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return "", false
	}
	return identity, hello.Subscribe
}
