// Package server defines the server contract the runtime schedules: a
// stateful subsystem (audio, draw, update) that performs one slice of work
// per runner cycle and can be converted to a transferable form for
// relocation between threads.
//
// The kind set is closed. Draw is thread-affine: it owns a rendering context
// that must be unbound before the server moves and rebound on the
// destination thread. Audio and Update transfer as-is.
package server

import "errors"

// Kind identifies a logical subsystem.
type Kind int

// The closed set of server kinds.
const (
	KindAudio Kind = iota
	KindDraw
	KindUpdate
)

// NumKinds is the number of server kinds.
const NumKinds = 3

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindDraw:
		return "draw"
	case KindUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Sentinel errors for server conversion.
var (
	// ErrEmptyTransfer is returned when converting a zero Transferable.
	ErrEmptyTransfer = errors.New("server: empty transferable")

	// ErrNotTransferable is returned by servers that cannot leave their
	// thread (test doubles, platform-pinned implementations).
	ErrNotTransferable = errors.New("server: not transferable")
)

// Server is the contract consumed by containers.
//
// Run performs one cycle of work. canBlock grants permission to block on
// I/O (a vsync wait, an audio buffer, an idle channel receive); it is
// granted only when the server is the sole resident of its container, so
// co-resident servers are never starved. frequency is the owning runner's
// current target rate, 0 meaning unthrottled.
type Server interface {
	Kind() Kind
	Run(canBlock bool, frequency float64) error
	ToTransferable() (Transferable, error)
}

// Transferable carries ownership of exactly one server in a form safe to
// move across threads. For Draw, the rendering context is unbound while in
// transit and rebound by IntoServer on the destination thread.
type Transferable struct {
	kind   Kind
	audio  *Audio
	draw   *Draw
	update *Update
}

// Kind returns the kind of the carried server.
func (t Transferable) Kind() Kind {
	return t.kind
}

// Empty reports whether the transferable carries nothing.
func (t Transferable) Empty() bool {
	return t.audio == nil && t.draw == nil && t.update == nil
}

// IntoServer converts back to the thread-affine form on the calling thread.
// For Draw this rebinds the rendering context and fails if the context is
// still bound elsewhere.
func (t Transferable) IntoServer() (Server, error) {
	switch {
	case t.audio != nil:
		return t.audio, nil
	case t.update != nil:
		return t.update, nil
	case t.draw != nil:
		if err := t.draw.ctx.Bind(); err != nil {
			return nil, err
		}
		return t.draw, nil
	default:
		return nil, ErrEmptyTransfer
	}
}
