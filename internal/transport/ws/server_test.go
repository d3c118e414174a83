package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"onistone.build/internal/config"
	"onistone.build/internal/logging"
	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/engine"
	"onistone.build/internal/sim/world/store"
)

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	out := make(chan []byte, 1)
	h.Register("p1", out)
	h.Notify("p1", "one")
	h.Notify("p1", "two")
	h.Notify("nobody", "lost")
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d", h.Dropped())
	}
	var n protocol.NotifyMsg
	if err := json.Unmarshal(<-out, &n); err != nil {
		t.Fatal(err)
	}
	if n.Type != protocol.TypeNotify || n.Text != "one" {
		t.Fatalf("notify=%+v", n)
	}

	newer := make(chan []byte, 1)
	h.Register("p1", newer)
	h.Unregister("p1", out)
	if h.Connected() != 1 {
		t.Fatalf("stale unregister removed the newer connection")
	}
}

func TestDecodeCommand(t *testing.T) {
	cases := []struct {
		raw  string
		ok   bool
		id   string
		code string
	}{
		{`{"type":"CMD","id":"a","cmd":"SEL_INFO"}`, true, "a", ""},
		{`{"type":"CMD","protocol_version":"1.0","id":"b","cmd":"UNDO"}`, true, "b", ""},
		{`{"type":"HELLO","id":"c"}`, false, "c", protocol.ErrProtoBadRequest},
		{`{"type":"CMD","protocol_version":"0.1","id":"d","cmd":"UNDO"}`, false, "d", protocol.ErrProtoBadRequest},
		{`{"type":"CMD","id":"e","cmd":"undo"}`, false, "e", protocol.ErrProtoBadRequest},
		{`not json`, false, "", protocol.ErrProtoBadRequest},
	}
	for _, tc := range cases {
		cmd, res, ok := decodeCommand([]byte(tc.raw))
		if ok != tc.ok {
			t.Fatalf("%s: ok=%v", tc.raw, ok)
		}
		if ok && cmd.ID != tc.id {
			t.Fatalf("%s: id=%q", tc.raw, cmd.ID)
		}
		if !ok && (res.ID != tc.id || res.Code != tc.code || res.OK) {
			t.Fatalf("%s: res=%+v", tc.raw, res)
		}
	}
}

func TestServer_HandshakeAndCommand(t *testing.T) {
	cfg := config.Defaults()
	cfg.Performance.TickRateHz = 200
	hub := NewHub()
	eng := engine.New(engine.Options{
		Config:   cfg,
		Worlds:   store.Worlds{"overworld": store.New("overworld", store.Limits{})},
		Notifier: hub,
		Log:      logging.Discard(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = eng.Run(ctx) }()

	srv := httptest.NewServer(NewServer(eng, hub, logging.Discard()).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ActorID: "p1", Name: "alex"}); err != nil {
		t.Fatal(err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.ActorID != "p1" || welcome.SessionID == "" {
		t.Fatalf("welcome=%+v", welcome)
	}

	cmd := protocol.CommandMsg{Type: protocol.TypeCommand, ID: "1", Cmd: "POS1", Args: json.RawMessage(`{"pos":[1,2,3]}`)}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatal(err)
	}
	var res protocol.ResultMsg
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.ID != "1" {
		t.Fatalf("result=%+v", res)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CMD","id":"2","cmd":"lower"}`)); err != nil {
		t.Fatal(err)
	}
	res = protocol.ResultMsg{}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if res.OK || res.Code != protocol.ErrProtoBadRequest || res.ID != "2" {
		t.Fatalf("bad frame result=%+v", res)
	}
}

func TestServer_RejectsBadHello(t *testing.T) {
	eng := engine.New(engine.Options{Config: config.Defaults(), Worlds: store.Worlds{}})
	srv := httptest.NewServer(NewServer(eng, NewHub(), logging.Discard()).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1", ActorID: "p1"}); err != nil {
		t.Fatal(err)
	}
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v", err)
	}
}
