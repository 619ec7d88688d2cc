package command

import (
	"fmt"

	"github.com/louisbranch/parkline/internal/platform/errors/i18n"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Status is the outcome kind of a validate or apply call. New kinds are only
// ever appended.
type Status uint8

const (
	StatusOk Status = iota
	StatusInvalidParameters
	StatusDisallowed
	StatusGamePaused
	StatusInsufficientFunds
	StatusNotInEditorMode
	StatusNotOwned
	StatusTooLow
	StatusTooHigh
	StatusNoClearance
	StatusItemAlreadyPlaced
	StatusNotClosed
	StatusBroken
	StatusNoFreeElements
	StatusForbidden
	StatusDecodeError
	StatusInternal
	statusCount
)

var statusNames = [...]string{
	StatusOk:                "ok",
	StatusInvalidParameters: "invalid_parameters",
	StatusDisallowed:        "disallowed",
	StatusGamePaused:        "game_paused",
	StatusInsufficientFunds: "insufficient_funds",
	StatusNotInEditorMode:   "not_in_editor_mode",
	StatusNotOwned:          "not_owned",
	StatusTooLow:            "too_low",
	StatusTooHigh:           "too_high",
	StatusNoClearance:       "no_clearance",
	StatusItemAlreadyPlaced: "item_already_placed",
	StatusNotClosed:         "not_closed",
	StatusBroken:            "broken",
	StatusNoFreeElements:    "no_free_elements",
	StatusForbidden:         "forbidden",
	StatusDecodeError:       "decode_error",
	StatusInternal:          "internal",
}

func (s Status) String() string {
	if s < statusCount {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s < statusCount
}

// Class groups statuses by how they propagate.
type Class uint8

const (
	ClassNone Class = iota
	ClassAuthorization
	ClassPrecondition
	ClassDecode
	ClassInvariant
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassAuthorization:
		return "authorization"
	case ClassPrecondition:
		return "precondition"
	case ClassDecode:
		return "decode"
	case ClassInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Class returns the propagation class of s.
func (s Status) Class() Class {
	switch s {
	case StatusOk:
		return ClassNone
	case StatusForbidden:
		return ClassAuthorization
	case StatusDecodeError:
		return ClassDecode
	case StatusInternal:
		return ClassInvariant
	default:
		return ClassPrecondition
	}
}

// Message keys shared across command kinds.
const (
	MsgNone            = ""
	MsgSyncLost        = "SYNC_LOST"
	MsgForbidden       = "PERMISSION_DENIED"
	MsgGamePaused      = "CONSTRUCTION_NOT_POSSIBLE_WHILE_PAUSED"
	MsgNotEnoughCash   = "NOT_ENOUGH_CASH"
	MsgNotInEditorMode = "NOT_IN_EDITOR_MODE"
)

// Message references localizable text. It never carries world state beyond
// the named arguments.
type Message struct {
	Title  string
	Detail string
	Args   map[string]string
}

// Localize renders title and detail for a locale.
func (m Message) Localize(locale string) (title, detail string) {
	catalog := i18n.GetCatalog(locale)
	if m.Title != "" {
		title = catalog.Format(m.Title, m.Args)
	}
	if m.Detail != "" {
		detail = catalog.Format(m.Detail, m.Args)
	}
	return title, detail
}

// Result is the outcome of one validate or apply call.
type Result struct {
	Status      Status
	Message     Message
	Cost        money.Money
	Expenditure money.Expenditure
	Position    *world.CoordsXYZ
}

// Ok returns a successful result.
func Ok() Result {
	return Result{Status: StatusOk}
}

// Fail returns a failed result. Cost is always zero.
func Fail(status Status, title, detail string) Result {
	return Result{Status: status, Message: Message{Title: title, Detail: detail}}
}

// Succeeded reports whether the status is Ok.
func (r Result) Succeeded() bool {
	return r.Status == StatusOk
}

// WithArg returns r with one message argument added.
func (r Result) WithArg(key, value string) Result {
	args := make(map[string]string, len(r.Message.Args)+1)
	for k, v := range r.Message.Args {
		args[k] = v
	}
	args[key] = value
	r.Message.Args = args
	return r
}

// At returns r with a position.
func (r Result) At(pos world.CoordsXYZ) Result {
	r.Position = &pos
	return r
}

// Forbidden is the result of an authorization failure. It carries no detail.
func Forbidden() Result {
	return Fail(StatusForbidden, MsgForbidden, MsgNone)
}

// SyncLost is what participants see for decode and invariant failures.
func SyncLost(status Status) Result {
	return Fail(status, MsgSyncLost, MsgNone)
}
