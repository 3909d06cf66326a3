package runner

import (
	"fmt"

	"github.com/strand-rt/strand/pkg/server"
)

// Mover is the relocation surface shared by the main runner and worker
// handles. TakeServer removes a server in transferable form; EmplaceServer
// inserts one, treating a duplicate kind as a fatal invariant violation on
// the owning thread.
type Mover interface {
	TakeServer(kind server.Kind) (server.Transferable, bool, error)
	EmplaceServer(t server.Transferable) error
}

// TakeServerChecked takes from a mover, reporting an absent kind as
// ErrServerAbsent instead of an empty result.
func TakeServerChecked(m Mover, kind server.Kind) (server.Transferable, error) {
	tr, ok, err := m.TakeServer(kind)
	if err != nil {
		return server.Transferable{}, err
	}
	if !ok {
		return server.Transferable{}, fmt.Errorf("%w: %s", ErrServerAbsent, kind)
	}
	return tr, nil
}
