package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/engine"
)

type Server struct {
	eng *engine.Engine
	hub *Hub
	log logrus.FieldLogger

	upgrader websocket.Upgrader
}

func NewServer(eng *engine.Engine, hub *Hub, log logrus.FieldLogger) *Server {
	return &Server{
		eng: eng,
		hub: hub,
		log: log.WithField("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // host plugins connect directly
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		actorID, sessionID, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.WithField("actor", actorID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 64)
		results := make(chan protocol.ResultMsg, 64)
		s.hub.Register(actorID, out)
		defer s.hub.Unregister(actorID, out)

		// Writer goroutine.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case b = <-out:
				case res := <-results:
					raw, err := json.Marshal(res)
					if err != nil {
						log.WithError(err).Warn("marshal result")
						continue
					}
					b = raw
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			cmd, res, ok := decodeCommand(msg)
			if !ok {
				select {
				case results <- res:
				default:
				}
				continue
			}
			select {
			case s.eng.Inbox() <- engine.Envelope{ActorID: actorID, Cmd: cmd, Resp: results}:
			case <-ctx.Done():
			}
		}

		// Cleanup.
		s.eng.Leave() <- engine.LeaveRequest{ActorID: actorID, SessionID: sessionID}
		log.Debug("connection closed")
	}
}

// decodeCommand validates a CMD frame. Frames that fail come back as an
// error result addressed to whatever id could be recovered.
func decodeCommand(msg []byte) (protocol.CommandMsg, protocol.ResultMsg, bool) {
	var cmd protocol.CommandMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return cmd, protocol.NewError("", protocol.ErrProtoBadRequest, "invalid json"), false
	}
	_ = json.Unmarshal(msg, &cmd)
	if base.Type != protocol.TypeCommand {
		return cmd, protocol.NewError(cmd.ID, protocol.ErrProtoBadRequest, "expected CMD, got "+base.Type), false
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		return cmd, protocol.NewError(cmd.ID, protocol.ErrProtoBadRequest, "bad protocol_version"), false
	}
	if err := protocol.ValidateCommand(msg); err != nil {
		return cmd, protocol.NewError(cmd.ID, protocol.ErrProtoBadRequest, err.Error()), false
	}
	return cmd, protocol.ResultMsg{}, true
}

func (s *Server) handshake(conn *websocket.Conn) (actorID, sessionID string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", "", false
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", "", false
	}
	if err := protocol.ValidateHello(msg); err != nil {
		closeWith(conn, "invalid HELLO")
		return "", "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", "", false
	}
	hello.ActorID = strings.TrimSpace(hello.ActorID)

	respCh := make(chan protocol.WelcomeMsg, 1)
	s.eng.Join() <- engine.JoinRequest{
		ActorID:   hello.ActorID,
		Name:      hello.Name,
		Dimension: hello.Dimension,
		Resp:      respCh,
	}
	var welcome protocol.WelcomeMsg
	select {
	case welcome = <-respCh:
	case <-time.After(10 * time.Second):
		closeWith(conn, "join timed out")
		return "", "", false
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", "", false
	}
	return hello.ActorID, welcome.SessionID, true
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
