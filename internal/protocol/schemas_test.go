package protocol_test

import (
	"testing"

	"onistone.build/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	good := []struct {
		name  string
		check func([]byte) error
		raw   string
	}{
		{"hello", protocol.ValidateHello, `{"type":"HELLO","protocol_version":"1.0","actor_id":"p-1","name":"Alex"}`},
		{"hello with auth", protocol.ValidateHello, `{"type":"HELLO","protocol_version":"1.0","actor_id":"p-1","auth":{"token":"t"}}`},
		{"cmd", protocol.ValidateCommand, `{"type":"CMD","id":"1","cmd":"PASTE","args":{"rotation":90},"confirm":true}`},
		{"cmd no args", protocol.ValidateCommand, `{"type":"CMD","id":"2","cmd":"UNDO"}`},
	}
	for _, tc := range good {
		if err := tc.check([]byte(tc.raw)); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
	}

	bad := []struct {
		name  string
		check func([]byte) error
		raw   string
	}{
		{"hello missing actor", protocol.ValidateHello, `{"type":"HELLO","protocol_version":"1.0"}`},
		{"hello wrong type", protocol.ValidateHello, `{"type":"CMD","protocol_version":"1.0","actor_id":"a"}`},
		{"cmd lowercase", protocol.ValidateCommand, `{"type":"CMD","id":"1","cmd":"paste"}`},
		{"cmd args not object", protocol.ValidateCommand, `{"type":"CMD","id":"1","cmd":"PASTE","args":[1]}`},
		{"not json", protocol.ValidateCommand, `{`},
	}
	for _, tc := range bad {
		if err := tc.check([]byte(tc.raw)); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"CMD","protocol_version":"1.0","id":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Type != protocol.TypeCommand || m.ProtocolVersion != protocol.Version {
		t.Fatalf("base=%+v", m)
	}
}
