package replication

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Kind identifies what a frame carries.
type Kind uint8

const (
	KindSubmit Kind = iota + 1
	KindSnapshot
	KindEntry
	KindTick
	KindReply
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindSubmit:
		return "submit"
	case KindSnapshot:
		return "snapshot"
	case KindEntry:
		return "entry"
	case KindTick:
		return "tick"
	case KindReply:
		return "reply"
	case KindFault:
		return "fault"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	// ErrFrameEmpty indicates a frame without a kind byte.
	ErrFrameEmpty = errors.New("frame is empty")
	// ErrFrameKind indicates a kind byte this build does not know.
	ErrFrameKind = errors.New("unknown frame kind")
)

// Snapshot is the world a joining replica starts from.
type Snapshot struct {
	LastSeq uint64
	State   *world.State
}

// Fault explains why the authority is closing a stream.
type Fault struct {
	Code    string
	Message string
}

// Frame is one decoded transport frame. Only the field matching Kind is set.
type Frame struct {
	Kind     Kind
	Command  []byte
	Snapshot Snapshot
	Entry    journal.Entry
	Tick     journal.TickMark
	Reply    engine.Reply
	Fault    Fault
}

// EncodeSubmit wraps a command frame built with command.Marshal.
func EncodeSubmit(frame []byte) []byte {
	enc := command.NewEncoder()
	enc.Raw(frame)
	return withKind(KindSubmit, enc)
}

// EncodeSnapshot encodes a join snapshot.
func EncodeSnapshot(state *world.State, lastSeq uint64) ([]byte, error) {
	data, err := state.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	enc := command.NewEncoder()
	enc.Uint(lastSeq)
	enc.Raw(data)
	return withKind(KindSnapshot, enc), nil
}

// EncodeEntry encodes a published entry with its chain fields.
func EncodeEntry(e journal.Entry) []byte {
	enc := command.NewEncoder()
	enc.Uint(e.Seq)
	enc.Uint(e.Tick)
	enc.Uint(uint64(e.Type))
	enc.Uint(uint64(e.Issuer))
	enc.Uint(uint64(e.RequestID))
	enc.Raw(e.Frame)
	enc.Raw(e.Result)
	enc.Int(e.RecordedAt.UnixNano())
	enc.String(e.Hash)
	enc.String(e.PrevHash)
	enc.String(e.ChainHash)
	enc.String(e.Signature)
	enc.String(e.SignatureKeyID)
	return withKind(KindEntry, enc)
}

// EncodeTick encodes a tick mark.
func EncodeTick(mark journal.TickMark) []byte {
	enc := command.NewEncoder()
	enc.Uint(mark.Tick)
	enc.Uint(mark.LastSeq)
	enc.String(mark.Checksum)
	return withKind(KindTick, enc)
}

// EncodeReply encodes a reply addressed to one participant.
func EncodeReply(r engine.Reply) []byte {
	enc := command.NewEncoder()
	enc.Uint(uint64(r.RequestID))
	enc.Uint(uint64(r.Type))
	enc.Bool(r.Ghost)
	enc.Raw(command.EncodeResult(r.Result))
	return withKind(KindReply, enc)
}

// EncodeFault encodes the reason a stream is closing.
func EncodeFault(f Fault) []byte {
	enc := command.NewEncoder()
	enc.String(f.Code)
	enc.String(f.Message)
	return withKind(KindFault, enc)
}

func withKind(kind Kind, enc *command.Encoder) []byte {
	body := enc.Bytes()
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(kind))
	return append(out, body...)
}

// DecodeFrame parses a frame. Byte slices in the result do not alias b.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, ErrFrameEmpty
	}
	f := Frame{Kind: Kind(b[0])}
	dec := command.NewDecoder(b[1:])
	switch f.Kind {
	case KindSubmit:
		f.Command = bytes.Clone(dec.Raw())
	case KindSnapshot:
		f.Snapshot.LastSeq = dec.Uint64()
		data := dec.Raw()
		if err := dec.Finish(); err != nil {
			return Frame{}, fmt.Errorf("decode %s: %w", f.Kind, err)
		}
		state, err := world.Decode(data)
		if err != nil {
			return Frame{}, fmt.Errorf("decode %s: %w", f.Kind, err)
		}
		f.Snapshot.State = state
		return f, nil
	case KindEntry:
		f.Entry = journal.Entry{
			Seq:       dec.Uint64(),
			Tick:      dec.Uint64(),
			Type:      command.Type(dec.Uint32()),
			Issuer:    world.PlayerID(dec.Uint32()),
			RequestID: dec.Uint32(),
			Frame:     bytes.Clone(dec.Raw()),
			Result:    bytes.Clone(dec.Raw()),
		}
		f.Entry.RecordedAt = time.Unix(0, dec.Int64()).UTC()
		f.Entry.Hash = dec.String()
		f.Entry.PrevHash = dec.String()
		f.Entry.ChainHash = dec.String()
		f.Entry.Signature = dec.String()
		f.Entry.SignatureKeyID = dec.String()
	case KindTick:
		f.Tick = journal.TickMark{
			Tick:     dec.Uint64(),
			LastSeq:  dec.Uint64(),
			Checksum: dec.String(),
		}
	case KindReply:
		f.Reply = engine.Reply{
			RequestID: dec.Uint32(),
			Type:      command.Type(dec.Uint32()),
			Ghost:     dec.Bool(),
		}
		result := dec.Raw()
		if err := dec.Finish(); err != nil {
			return Frame{}, fmt.Errorf("decode %s: %w", f.Kind, err)
		}
		res, err := command.DecodeResult(result)
		if err != nil {
			return Frame{}, fmt.Errorf("decode %s result: %w", f.Kind, err)
		}
		f.Reply.Result = res
		return f, nil
	case KindFault:
		f.Fault = Fault{Code: dec.String(), Message: dec.String()}
	default:
		return Frame{}, fmt.Errorf("%w: %d", ErrFrameKind, b[0])
	}
	if err := dec.Finish(); err != nil {
		return Frame{}, fmt.Errorf("decode %s: %w", f.Kind, err)
	}
	return f, nil
}
