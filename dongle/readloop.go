package dongle

import (
	"errors"
	"sync/atomic"

	"github.com/alexpevzner/carplaydongled/protocol"
	"github.com/alexpevzner/carplaydongled/usbtransport"
)

// readLoop owns the IN endpoint exclusively for the lifetime of the
// Running state. It never panics out: every failure either counts toward
// the error ceiling, gets logged and skipped, or both.
func (s *Session) readLoop() {
	defer close(s.readDone)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if atomic.LoadUint64(&s.errorCount) >= MaxErrors {
			s.close(true, false)
			s.emitFailure()
			return
		}

		hdrBytes, err := s.transport.ReadExact(protocol.HeaderSize, readTimeout)
		if err != nil {
			if errors.Is(err, usbtransport.ErrTimeout) {
				continue
			}
			if s.log != nil {
				s.log.Debug("read loop: header read: %v", err)
			}
			atomic.AddUint64(&s.errorCount, 1)
			continue
		}

		hdr, err := protocol.ParseHeader(hdrBytes)
		if err != nil {
			if s.log != nil {
				s.log.Debug("read loop: bad header: %v", err)
			}
			atomic.AddUint64(&s.errorCount, 1)
			continue
		}

		var payload []byte
		if hdr.Length > 0 {
			payload, err = s.transport.ReadExact(int(hdr.Length), readTimeout)
			if err != nil {
				if s.log != nil {
					s.log.Debug("read loop: payload read (type %s): %v", hdr.Type, err)
				}
				if s.cfg.StrictPayloadErrors {
					atomic.AddUint64(&s.errorCount, 1)
				}
				continue
			}
		}

		res := protocol.Decode(hdr, payload)
		switch {
		case res.Err != nil:
			if s.log != nil {
				s.log.Debug("read loop: decode (type %s): %v", hdr.Type, res.Err)
			}
		case res.Skipped:
			if s.log != nil {
				s.log.Trace("read loop: skipping unrecognized type %s", hdr.Type)
			}
		default:
			s.emitMessage(res.Message)
		}
	}
}
