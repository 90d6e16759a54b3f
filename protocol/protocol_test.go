package protocol

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 256; i++ {
		typ := MessageType(rng.Uint32())
		length := rng.Uint32()

		buf := EmitHeader(typ, length)
		h, err := ParseHeader(buf[:])
		if err != nil {
			t.Fatalf("ParseHeader(%v): %v", buf, err)
		}
		if h.Type != typ || h.Length != length {
			t.Fatalf("round trip mismatch: got {%v,%v}, want {%v,%v}", h.Type, h.Length, typ, length)
		}
	}
}

func TestHeaderTypeCheckLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 256; i++ {
		typ := MessageType(rng.Uint32())
		buf := EmitHeader(typ, rng.Uint32())

		if binary.LittleEndian.Uint32(buf[0:4]) != Magic {
			t.Fatalf("magic field wrong")
		}
		gotCheck := binary.LittleEndian.Uint32(buf[12:16])
		wantCheck := ^uint32(typ)
		if gotCheck != wantCheck {
			t.Fatalf("type check mismatch: got 0x%x want 0x%x", gotCheck, wantCheck)
		}
	}
}

func TestParseHeaderScenarioA(t *testing.T) {
	buf := []byte{0xAA, 0x55, 0xAA, 0x55, 0x04, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0xF7, 0xFF, 0xFF, 0xFF}
	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Length != 4 || h.Type != TypeCommand {
		t.Fatalf("got {%v,%v}, want {4,0x08}", h.Length, h.Type)
	}

	payload := []byte{0xEA, 0x03, 0x00, 0x00} // 1002 = wifiConnect
	res := Decode(h, payload)
	if res.Err != nil || res.Skipped {
		t.Fatalf("Decode: skipped=%v err=%v", res.Skipped, res.Err)
	}
	cmd, ok := res.Message.(Command)
	if !ok {
		t.Fatalf("Decode returned %T, want Command", res.Message)
	}
	want, _ := CommandByName("wifiConnect")
	if cmd.Value != want {
		t.Fatalf("got command %v, want %v", cmd.Value, want)
	}
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	buf := EmitHeader(TypeHeartBeat, 0)
	buf[0] ^= 0xFF
	if _, err := ParseHeader(buf[:]); err == nil {
		t.Fatal("expected error for corrupted magic")
	}
}

func TestParseHeaderRejectsShortBuffer(t *testing.T) {
	if _, err := ParseHeader(make([]byte, 15)); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestParseHeaderRejectsBadTypeCheck(t *testing.T) {
	buf := EmitHeader(TypeHeartBeat, 0)
	buf[12] ^= 0xFF
	if _, err := ParseHeader(buf[:]); err == nil {
		t.Fatal("expected error for corrupted type check")
	}
}

func TestDecodeUnknownTypeSkips(t *testing.T) {
	h := Header{Type: MessageType(0xDEAD), Length: 3}
	res := Decode(h, []byte{1, 2, 3})
	if !res.Skipped || res.Err != nil || res.Message != nil {
		t.Fatalf("want Skipped, got %+v", res)
	}
}

func TestHeartBeatFrame(t *testing.T) {
	want := []byte{0xAA, 0x55, 0xAA, 0x55, 0x00, 0x00, 0x00, 0x00, 0xAA, 0x00, 0x00, 0x00, 0x55, 0xFF, 0xFF, 0xFF}
	got := Encode(HeartBeat{})
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}

func TestSendOpenEncoding(t *testing.T) {
	s := SendOpen{Config: OpenConfig{
		Width: 800, Height: 640, FPS: 20, Format: 5,
		PacketMax: 49152, IBoxVersion: 2, PhoneWorkMode: 2,
	}}
	want := []byte{
		0x20, 0x03, 0x00, 0x00,
		0x80, 0x02, 0x00, 0x00,
		0x14, 0x00, 0x00, 0x00,
		0x05, 0x00, 0x00, 0x00,
		0x00, 0xC0, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
	}
	if got := s.Payload(); !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}

	full := Encode(s)
	if len(full) != HeaderSize+28 {
		t.Fatalf("encoded frame length = %d, want %d", len(full), HeaderSize+28)
	}
	h, err := ParseHeader(full[:HeaderSize])
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Type != TypeOpen || h.Length != 28 {
		t.Fatalf("got {%v,%v}, want {Open,28}", h.Type, h.Length)
	}
}

func TestSendTouchClamp(t *testing.T) {
	cases := []struct {
		x, y   float64
		wantX  uint32
		wantY  uint32
	}{
		{0, 0, 0, 0},
		{1, 1, 10000, 10000},
		{0.5, 0.75, 5000, 7500},
		{-1, 2, 0, 10000}, // out-of-range inputs still clamp into [0,10000]
	}
	for _, c := range cases {
		payload := SendTouch{X: c.x, Y: c.y, Action: TouchDown}.Payload()
		if len(payload) != 16 {
			t.Fatalf("payload length = %d, want 16", len(payload))
		}
		gotX := binary.LittleEndian.Uint32(payload[4:8])
		gotY := binary.LittleEndian.Uint32(payload[8:12])
		if gotX != c.wantX || gotY != c.wantY {
			t.Fatalf("(%v,%v): got (%d,%d), want (%d,%d)", c.x, c.y, gotX, gotY, c.wantX, c.wantY)
		}
		if gotX > 10000 || gotY > 10000 {
			t.Fatalf("(%v,%v): scaled coordinates escaped [0,10000]: (%d,%d)", c.x, c.y, gotX, gotY)
		}
	}
}

func TestSendTouchMonotone(t *testing.T) {
	prev := uint32(0)
	for i := 0; i <= 10; i++ {
		x := float64(i) / 10
		payload := SendTouch{X: x, Y: 0, Action: TouchMove}.Payload()
		got := binary.LittleEndian.Uint32(payload[4:8])
		if got < prev {
			t.Fatalf("x_scaled not monotone at x=%v: got %d after %d", x, got, prev)
		}
		prev = got
	}
}

func TestCommandRoundTrip(t *testing.T) {
	for name, code := range commandNames {
		s := NewSendCommand(name)
		h := Header{Type: TypeCommand, Length: 4}
		res := Decode(h, s.Payload())
		if res.Err != nil || res.Skipped {
			t.Fatalf("%s: skipped=%v err=%v", name, res.Skipped, res.Err)
		}
		got := res.Message.(Command).Value
		if got != code {
			t.Fatalf("%s: got %v, want %v", name, got, code)
		}
	}
}

func TestBoxSettingsRoundTrip(t *testing.T) {
	out := SendBoxSettings{Config: BoxSettingsConfig{MediaDelay: 300, Width: 800, Height: 640}, SyncTime: 1700000000}
	h := Header{Type: TypeBoxSettings, Length: uint32(len(out.Payload()))}
	res := Decode(h, out.Payload())
	if res.Err != nil || res.Skipped {
		t.Fatalf("skipped=%v err=%v", res.Skipped, res.Err)
	}
	in, ok := res.Message.(BoxSettings)
	if !ok {
		t.Fatalf("got %T, want BoxSettings", res.Message)
	}
	if !bytes.Equal(in.JSON, out.Payload()) {
		t.Fatalf("got %s, want %s", in.JSON, out.Payload())
	}
}

func TestPhaseRoundTrip(t *testing.T) {
	payload := putLE32(3)
	h := Header{Type: TypePhase, Length: 4}
	res := Decode(h, payload)
	if res.Err != nil || res.Skipped {
		t.Fatalf("skipped=%v err=%v", res.Skipped, res.Err)
	}
	if res.Message.(Phase).Phase != 3 {
		t.Fatalf("got %v, want 3", res.Message.(Phase).Phase)
	}
}

func TestPluggedWithAndWithoutWifi(t *testing.T) {
	without := decodeMust(t, TypePlugged, putLE32(uint32(PhoneTypeCarPlay)))
	p := without.(Plugged)
	if p.WifiAvail || p.PhoneType != PhoneTypeCarPlay {
		t.Fatalf("got %+v", p)
	}

	with := decodeMust(t, TypePlugged, append(putLE32(uint32(PhoneTypeAndroidAuto)), putLE32(1)...))
	p2 := with.(Plugged)
	if !p2.WifiAvail || p2.Wifi != 1 || p2.PhoneType != PhoneTypeAndroidAuto {
		t.Fatalf("got %+v", p2)
	}
}

func decodeMust(t *testing.T, typ MessageType, payload []byte) Message {
	t.Helper()
	res := Decode(Header{Type: typ, Length: uint32(len(payload))}, payload)
	if res.Err != nil || res.Skipped {
		t.Fatalf("decode %v: skipped=%v err=%v", typ, res.Skipped, res.Err)
	}
	return res.Message
}

func TestMediaDataVariants(t *testing.T) {
	jsonBody := `{"title":"x"}`
	payload := append(putLE32(uint32(MediaTypeData)), append([]byte(jsonBody), 0)...)
	m := decodeMust(t, TypeMediaData, payload).(MediaData)
	if string(m.JSON) != jsonBody {
		t.Fatalf("got %q, want %q", m.JSON, jsonBody)
	}

	cover := []byte{1, 2, 3, 4}
	payload2 := append(putLE32(uint32(MediaTypeAlbumCover)), cover...)
	m2 := decodeMust(t, TypeMediaData, payload2).(MediaData)
	if !bytes.Equal(m2.AlbumCover, cover) {
		t.Fatalf("got %v, want %v", m2.AlbumCover, cover)
	}
}

func TestAudioDataVariants(t *testing.T) {
	prefix := append(putLE32(1), append(putLEFloat32(0.5), putLE32(7)...)...)

	cmdPayload := append(append([]byte{}, prefix...), byte(int8(AudioSiriStart)))
	a := decodeMust(t, TypeAudioData, cmdPayload).(AudioData)
	if a.Command == nil || *a.Command != AudioSiriStart {
		t.Fatalf("got %+v", a)
	}

	durPayload := append(append([]byte{}, prefix...), putLEFloat32(1.5)...)
	a2 := decodeMust(t, TypeAudioData, durPayload).(AudioData)
	if a2.VolumeDuration == nil || *a2.VolumeDuration != 1.5 {
		t.Fatalf("got %+v", a2)
	}

	samples := []int16{1, -1, 32767}
	samplesBytes := make([]byte, 0, len(samples)*2)
	for _, v := range samples {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		samplesBytes = append(samplesBytes, b...)
	}
	pcmPayload := append(append([]byte{}, prefix...), samplesBytes...)
	a3 := decodeMust(t, TypeAudioData, pcmPayload).(AudioData)
	if len(a3.Samples) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(a3.Samples), len(samples))
	}
	for i, v := range samples {
		if a3.Samples[i] != v {
			t.Fatalf("sample %d: got %d, want %d", i, a3.Samples[i], v)
		}
	}
}

func TestVideoDataDecode(t *testing.T) {
	hdr := append(putLE32(1280), append(putLE32(720), append(putLE32(0), append(putLE32(4), putLE32(99)...)...)...)...)
	payload := append(hdr, []byte{0xDE, 0xAD, 0xBE, 0xEF}...)
	v := decodeMust(t, TypeVideoData, payload).(VideoData)
	if v.Width != 1280 || v.Height != 720 || v.Length != 4 || v.Unknown != 99 {
		t.Fatalf("got %+v", v)
	}
	if !bytes.Equal(v.Data, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("got %v", v.Data)
	}
}

func TestSendFileEncoding(t *testing.T) {
	f := NewSendBoolean(true, FileNightMode)
	payload := f.Payload()
	nameLen := binary.LittleEndian.Uint32(payload[0:4])
	if int(nameLen) != len(FileNightMode)+1 {
		t.Fatalf("name length = %d, want %d", nameLen, len(FileNightMode)+1)
	}
	name := string(payload[4 : 4+nameLen-1])
	if name != FileNightMode {
		t.Fatalf("name = %q, want %q", name, FileNightMode)
	}
	if payload[4+nameLen-1] != 0 {
		t.Fatal("expected NUL terminator after file name")
	}
}

func TestSendMultiTouchSequentialIDs(t *testing.T) {
	points := []TouchPoint{
		{X: 0.1, Y: 0.2, Action: MultiTouchDown},
		{X: 0.3, Y: 0.4, Action: MultiTouchMove},
	}
	payload := SendMultiTouch{Points: points}.Payload()
	if len(payload) != 16*len(points) {
		t.Fatalf("payload length = %d, want %d", len(payload), 16*len(points))
	}
	for i := range points {
		off := i * 16
		id := binary.LittleEndian.Uint32(payload[off+12 : off+16])
		if int(id) != i {
			t.Fatalf("point %d: id = %d, want %d", i, id, i)
		}
	}
}
