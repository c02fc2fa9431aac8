package inject

import (
	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/components/board/genericlinux"
)

// EdgeSource is an injected edge source.
type EdgeSource struct {
	genericlinux.EdgeSource
	ArmEdgeFunc func(pin board.CanonicalPin, edge board.Edge) (genericlinux.EdgeWaiter, error)
}

// ArmEdge calls the injected ArmEdge or the real version.
func (s *EdgeSource) ArmEdge(pin board.CanonicalPin, edge board.Edge) (genericlinux.EdgeWaiter, error) {
	if s.ArmEdgeFunc == nil {
		return s.EdgeSource.ArmEdge(pin, edge)
	}
	return s.ArmEdgeFunc(pin, edge)
}

// EdgeWaiter is an injected edge waiter.
type EdgeWaiter struct {
	genericlinux.EdgeWaiter
	WaitForEdgeFunc func() (genericlinux.EdgeEvent, error)
	CloseFunc       func() error
}

// WaitForEdge calls the injected WaitForEdge or the real version.
func (w *EdgeWaiter) WaitForEdge() (genericlinux.EdgeEvent, error) {
	if w.WaitForEdgeFunc == nil {
		return w.EdgeWaiter.WaitForEdge()
	}
	return w.WaitForEdgeFunc()
}

// Close calls the injected Close or the real version.
func (w *EdgeWaiter) Close() error {
	if w.CloseFunc == nil {
		if w.EdgeWaiter == nil {
			return nil
		}
		return w.EdgeWaiter.Close()
	}
	return w.CloseFunc()
}
