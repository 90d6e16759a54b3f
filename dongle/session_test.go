package dongle

import (
	"encoding/binary"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alexpevzner/carplaydongled/dongleconf"
	"github.com/alexpevzner/carplaydongled/protocol"
	"github.com/alexpevzner/carplaydongled/usbtransport"
)

func init() {
	// Shrink the engine's real-world timing so these tests run in
	// milliseconds instead of seconds.
	readTimeout = 20 * time.Millisecond
	heartbeatInterval = 25 * time.Millisecond
	wifiConnectDelay = 5 * time.Millisecond
	backgroundTaskJoinBudget = 300 * time.Millisecond
}

// fakeIn is a blocking-until-fed io.Reader standing in for a bulk IN
// endpoint with nothing pending until the test pushes data.
type fakeIn struct {
	mu     sync.Mutex
	cond   *sync.Cond
	chunks [][]byte
	closed bool
}

func newFakeIn() *fakeIn {
	f := &fakeIn{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *fakeIn) push(b []byte) {
	f.mu.Lock()
	f.chunks = append(f.chunks, b)
	f.mu.Unlock()
	f.cond.Signal()
}

func (f *fakeIn) Read(p []byte) (int, error) {
	f.mu.Lock()
	for len(f.chunks) == 0 && !f.closed {
		f.cond.Wait()
	}
	if len(f.chunks) == 0 {
		f.mu.Unlock()
		return 0, io.EOF
	}
	chunk := f.chunks[0]
	f.chunks = f.chunks[1:]
	f.mu.Unlock()
	return copy(p, chunk), nil
}

// recordingOut records each Write call's bytes as one frame. Transport
// serializes calls to this under its own mutex, so appends here are never
// concurrent.
type recordingOut struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recordingOut) Write(p []byte) (int, error) {
	r.mu.Lock()
	buf := make([]byte, len(p))
	copy(buf, p)
	r.frames = append(r.frames, buf)
	r.mu.Unlock()
	return len(p), nil
}

func (r *recordingOut) types() []protocol.MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.MessageType, len(r.frames))
	for i, f := range r.frames {
		out[i] = protocol.MessageType(binary.LittleEndian.Uint32(f[8:12]))
	}
	return out
}

func newTestSession(t *testing.T, in io.Reader, out io.Writer) *Session {
	t.Helper()
	s := New(nil)
	tr := usbtransport.New(in, out, nil)
	if err := s.InitializeTransport(tr); err != nil {
		t.Fatalf("InitializeTransport: %v", err)
	}
	return s
}

func TestStateMachineTransitions(t *testing.T) {
	s := newTestSession(t, newFakeIn(), &recordingOut{})
	if s.State() != StateInitialized {
		t.Fatalf("got %v, want Initialized", s.State())
	}

	if err := s.Start(dongleconf.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("got %v, want Running", s.State())
	}

	s.Close()
	if s.State() != StateClosed {
		t.Fatalf("got %v, want Closed", s.State())
	}

	// Idempotent.
	s.Close()
	if s.State() != StateClosed {
		t.Fatalf("second Close: got %v, want Closed", s.State())
	}
}

func TestStartRequiresInitialized(t *testing.T) {
	s := New(nil)
	if err := s.Start(dongleconf.Default()); err != ErrNotInitialized {
		t.Fatalf("got %v, want ErrNotInitialized", err)
	}
}

func TestSendBeforeInitializeReturnsNotInitialized(t *testing.T) {
	s := New(nil)
	ok, err := s.Send(protocol.HeartBeat{})
	if ok || err != ErrNotInitialized {
		t.Fatalf("got (%v,%v), want (false, ErrNotInitialized)", ok, err)
	}
}

func TestInitializationBurstOrder(t *testing.T) {
	out := &recordingOut{}
	s := newTestSession(t, newFakeIn(), out)
	defer s.Close()

	if err := s.Start(dongleconf.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []protocol.MessageType{
		protocol.TypeSendFile, // dpi
		protocol.TypeOpen,
		protocol.TypeSendFile, // night_mode
		protocol.TypeSendFile, // hand
		protocol.TypeSendFile, // charge_mode
		protocol.TypeSendFile, // box_name
		protocol.TypeBoxSettings,
		protocol.TypeCommand, // wifiEnable
		protocol.TypeCommand, // wifi5g
		protocol.TypeCommand, // mic
		protocol.TypeCommand, // audioTransferOff
		protocol.TypeCommand, // wifiConnect, after the pause
	}

	got := out.types()
	if len(got) < len(want) {
		t.Fatalf("got %d frames, want at least %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("frame %d: got %v, want %v (full sequence: %v)", i, got[i], w, got[:len(want)])
		}
	}
}

func TestErrorCeilingClosesAndEmitsFailureOnce(t *testing.T) {
	in := newFakeIn()
	s := newTestSession(t, in, &recordingOut{})

	var failures int32
	var mu sync.Mutex
	done := make(chan struct{})
	s.OnFailure(func() {
		mu.Lock()
		failures++
		mu.Unlock()
		close(done)
	})

	var messages int
	s.OnMessage(func(protocol.Message) { messages++ })

	if err := s.Start(dongleconf.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	badHeader := make([]byte, protocol.HeaderSize)
	copy(badHeader, []byte{0, 0, 0, 0}) // wrong magic
	for i := 0; i < MaxErrors; i++ {
		in.push(append([]byte(nil), badHeader...))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("failure event never fired")
	}

	mu.Lock()
	n := failures
	mu.Unlock()
	if n != 1 {
		t.Fatalf("failure emitted %d times, want 1", n)
	}
	if s.State() != StateClosed {
		t.Fatalf("got %v, want Closed", s.State())
	}
	if messages != 0 {
		t.Fatalf("got %d decoded messages, want 0", messages)
	}
}

func TestShutdownLatencyBoundedByReadTimeout(t *testing.T) {
	s := newTestSession(t, newFakeIn(), &recordingOut{})
	if err := s.Start(dongleconf.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	start := time.Now()
	s.Close()
	elapsed := time.Since(start)

	bound := readTimeout + heartbeatInterval + 200*time.Millisecond
	if elapsed > bound {
		t.Fatalf("Close took %v, want <= %v", elapsed, bound)
	}

	select {
	case <-s.readDone:
	default:
		t.Fatal("read task did not exit")
	}
	select {
	case <-s.heartbeatDone:
	default:
		t.Fatal("heartbeat task did not exit")
	}
}

func TestWriteNeverInterleavesAcrossHeartbeatAndSend(t *testing.T) {
	out := &recordingOut{}
	s := newTestSession(t, newFakeIn(), out)
	defer s.Close()

	if err := s.Start(dongleconf.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Send(protocol.SendCloseDongle{})
		}()
	}
	wg.Wait()

	for _, f := range out.framesCopy() {
		if len(f) < protocol.HeaderSize {
			t.Fatalf("frame shorter than a header: %v", f)
		}
		h, err := protocol.ParseHeader(f[:protocol.HeaderSize])
		if err != nil {
			t.Fatalf("corrupted/interleaved frame header: %v (%v)", f, err)
		}
		if int(h.Length) != len(f)-protocol.HeaderSize {
			t.Fatalf("frame length field %d doesn't match actual payload length %d", h.Length, len(f)-protocol.HeaderSize)
		}
	}
}

func (r *recordingOut) framesCopy() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.frames))
	copy(out, r.frames)
	return out
}

func TestWriteErrorsDoNotAffectErrorCeiling(t *testing.T) {
	s := newTestSession(t, newFakeIn(), failingWriter{})
	if err := s.Start(dongleconf.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	time.Sleep(5 * readTimeout)

	if s.State() != StateRunning {
		t.Fatalf("got %v, want Running despite write failures", s.State())
	}
	if s.ErrorCount() != 0 {
		t.Fatalf("ErrorCount() = %d, want 0", s.ErrorCount())
	}
	if s.WriteErrors() == 0 {
		t.Fatal("expected WriteErrors() to be nonzero")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}
