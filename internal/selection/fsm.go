package selection

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/five82/vininsight/internal/logging"
	"github.com/five82/vininsight/internal/view"
)

const (
	eventReset   = "reset"
	eventStart   = "start"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

var allStatuses = []string{
	string(view.StatusNone),
	string(view.StatusPending),
	string(view.StatusSuccess),
	string(view.StatusError),
}

func newStatusMachine(log logging.Logger) *fsm.FSM {
	events := fsm.Events{
		{Name: eventReset, Src: allStatuses, Dst: string(view.StatusNone)},
		{Name: eventStart, Src: []string{string(view.StatusNone), string(view.StatusSuccess), string(view.StatusError)}, Dst: string(view.StatusPending)},
		{Name: eventSucceed, Src: []string{string(view.StatusPending)}, Dst: string(view.StatusSuccess)},
		{Name: eventFail, Src: []string{string(view.StatusPending)}, Dst: string(view.StatusError)},
	}
	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			log.Debug("decode status changed", "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	}
	return fsm.NewFSM(string(view.StatusNone), events, callbacks)
}

// fire applies event, treating a transition to the current state as success.
func fire(ctx context.Context, m *fsm.FSM, event string) error {
	err := m.Event(ctx, event)
	var noTransition fsm.NoTransitionError
	if err == nil || errors.As(err, &noTransition) {
		return nil
	}
	return err
}
