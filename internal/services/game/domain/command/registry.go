package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

// Factory returns a zero command of one kind, ready for UnmarshalFields.
type Factory func() Command

// Definition registers a command kind.
type Definition struct {
	Type Type
	Name string
	New  Factory
}

// Registry maps type ids to factories.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a command kind.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return fmt.Errorf("command type %s: name is required", def.Type)
	}
	if def.New == nil {
		return fmt.Errorf("command type %s: factory is required", def.Type)
	}
	if got := def.New().Type(); got != def.Type {
		return fmt.Errorf("command type %s: factory builds %s", def.Type, got)
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("command type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// Definitions returns every registered kind ordered by type id.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Name returns the registered name of a kind.
func (r *Registry) Name(t Type) string {
	if def, ok := r.definitions[t]; ok {
		return def.Name
	}
	return t.String()
}

// Create rebuilds a command from its encoded fields.
func (r *Registry) Create(t Type, fields []byte) (Command, error) {
	def, ok := r.definitions[t]
	if !ok {
		return nil, &DecodeError{Type: t, Err: ErrTypeUnknown}
	}
	cmd := def.New()
	dec := NewDecoder(fields)
	if err := cmd.UnmarshalFields(dec); err != nil {
		return nil, &DecodeError{Type: t, Err: err}
	}
	if err := dec.Finish(); err != nil {
		return nil, &DecodeError{Type: t, Err: err}
	}
	return cmd, nil
}

// Marshal encodes an envelope: a little-endian fixed32 type id followed by the
// version, header fields and command fields.
func Marshal(env Envelope) []byte {
	body := NewEncoder()
	env.Command.MarshalFields(body)

	enc := NewEncoder()
	enc.Uint(WireVersion)
	enc.Uint(uint64(env.Header.Issuer))
	enc.Uint(uint64(env.Header.RequestID))
	enc.Uint(uint64(env.Header.Flags))
	enc.Raw(body.Bytes())

	frame := protowire.AppendFixed32(nil, uint32(env.Command.Type()))
	return append(frame, enc.Bytes()...)
}

// Decode rebuilds an envelope from a frame produced by Marshal. Any defect
// yields a DecodeError and no command.
func (r *Registry) Decode(frame []byte) (Envelope, error) {
	raw, n := protowire.ConsumeFixed32(frame)
	if n < 0 {
		return Envelope{}, &DecodeError{Err: ErrFrameTruncated}
	}
	t := Type(raw)
	if _, ok := r.definitions[t]; !ok {
		return Envelope{}, &DecodeError{Type: t, Err: ErrTypeUnknown}
	}

	dec := NewDecoder(frame[n:])
	version := dec.Uint32()
	if dec.Err() == nil && version != WireVersion {
		return Envelope{}, &DecodeError{Type: t, Err: fmt.Errorf("%w: %d", ErrVersionUnsupported, version)}
	}
	header := Header{
		Issuer:    world.PlayerID(dec.Uint32()),
		RequestID: dec.Uint32(),
		Flags:     Flags(dec.Uint32()),
	}
	body := dec.Raw()
	if err := dec.Finish(); err != nil {
		return Envelope{}, &DecodeError{Type: t, Err: err}
	}
	if header.Flags&^headerFlags != 0 {
		return Envelope{}, &DecodeError{Type: t, Err: fmt.Errorf("header flags %#x not allowed", uint32(header.Flags))}
	}

	cmd, err := r.Create(t, body)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Header: header, Command: cmd}, nil
}

// Canonicalize round-trips env through the wire form so the caller executes
// exactly what replicas will decode.
func (r *Registry) Canonicalize(env Envelope) (Envelope, []byte, error) {
	if env.Command == nil {
		return Envelope{}, nil, &DecodeError{Err: errors.New("command is required")}
	}
	frame := Marshal(env)
	decoded, err := r.Decode(frame)
	if err != nil {
		return Envelope{}, nil, err
	}
	return decoded, frame, nil
}
