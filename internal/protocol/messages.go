package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ActorID         string     `json:"actor_id"`
	Name            string     `json:"name"`
	Dimension       string     `json:"dimension,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	ActorID         string     `json:"actor_id"`
	Limits          LimitsInfo `json:"limits"`
	Dimensions      []string   `json:"dimensions"`
	Commands        []string   `json:"commands"`
}

type LimitsInfo struct {
	MaxSelectionVolume int `json:"max_selection_volume"`
	MaxPasteVolume     int `json:"max_paste_volume"`
	ConfirmThreshold   int `json:"confirm_threshold"`
	UndoDepth          int `json:"undo_depth"`
	ClipboardLimit     int `json:"clipboard_limit"`
	BatchSize          int `json:"batch_size"`
}

// CMD (client -> server). Args are decoded per command by the engine.
type CommandMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version,omitempty"`
	ID              string          `json:"id"`
	Cmd             string          `json:"cmd"`
	Args            json.RawMessage `json:"args,omitempty"`
	Confirm         bool            `json:"confirm,omitempty"`
}

// RESULT (server -> client), one per CMD.
type ResultMsg struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NOTIFY (server -> client): progress and completion text.
type NotifyMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
	OpID string `json:"op_id,omitempty"`
}

func NewResult(id string, data any) ResultMsg {
	return ResultMsg{Type: TypeResult, ID: id, OK: true, Data: data}
}

func NewError(id, code, message string) ResultMsg {
	return ResultMsg{Type: TypeResult, ID: id, Code: code, Message: message}
}
