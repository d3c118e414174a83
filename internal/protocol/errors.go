package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnknownCommand  = "E_UNKNOWN_COMMAND"

	// Command layer.
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrLimit           = "E_LIMIT"
	ErrConfirmRequired = "E_CONFIRM_REQUIRED"
	ErrNoPermission    = "E_NO_PERMISSION"
	ErrBusy            = "E_BUSY"
	ErrNotFound        = "E_NOT_FOUND"
	ErrConflict        = "E_CONFLICT"
	ErrNoSelection     = "E_NO_SELECTION"
	ErrEmptyClipboard  = "E_EMPTY_CLIPBOARD"
	ErrNothingToUndo   = "E_NOTHING_TO_UNDO"
	ErrCorrupt         = "E_CORRUPT"
	ErrAccess          = "E_ACCESS"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrUnknownCommand:  {},
	ErrBadRequest:      {},
	ErrLimit:           {},
	ErrConfirmRequired: {},
	ErrNoPermission:    {},
	ErrBusy:            {},
	ErrNotFound:        {},
	ErrConflict:        {},
	ErrNoSelection:     {},
	ErrEmptyClipboard:  {},
	ErrNothingToUndo:   {},
	ErrCorrupt:         {},
	ErrAccess:          {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
