package ev

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Lifecycle transition events
const (
	transitionConnect    = "connect"
	transitionDisconnect = "disconnect"
)

// lifecycle guards the connection state machine:
// pending_auth -> connected -> disconnected (terminal).
// Re-adding after disconnect always creates a fresh Connection, so there is
// no transition out of disconnected.
type lifecycle struct {
	fsm *fsm.FSM
}

func newLifecycle(initial ConnectionStatus) *lifecycle {
	return &lifecycle{
		fsm: fsm.NewFSM(
			string(initial),
			fsm.Events{
				{Name: transitionConnect, Src: []string{string(StatusPendingAuth)}, Dst: string(StatusConnected)},
				{Name: transitionDisconnect, Src: []string{string(StatusPendingAuth), string(StatusConnected)}, Dst: string(StatusDisconnected)},
			},
			fsm.Callbacks{},
		),
	}
}

// current returns the present lifecycle status
func (l *lifecycle) current() ConnectionStatus {
	return ConnectionStatus(l.fsm.Current())
}

// trigger fires a transition event, failing on illegal transitions
func (l *lifecycle) trigger(event string) error {
	if err := l.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, l.fsm.Current())
	}
	return nil
}
