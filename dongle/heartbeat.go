package dongle

import (
	"time"

	"github.com/alexpevzner/carplaydongled/protocol"
)

// heartbeatLoop emits an empty HeartBeat frame, then waits for the next
// tick or a stop signal. A Send failure never stops the loop — the
// OUT-side error counter (WriteErrors) tracks it instead.
func (s *Session) heartbeatLoop() {
	defer close(s.heartbeatDone)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.Send(protocol.HeartBeat{})

		select {
		case <-s.stopCh:
			return
		case <-time.After(heartbeatInterval):
		}
	}
}
