package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Sendable is implemented by every outbound message. Payload returns the
// frame body only; the header is added by Encode.
type Sendable interface {
	Type() MessageType
	Payload() []byte
}

// Encode serializes a Sendable into its full wire form: a 16-byte header
// followed by its payload.
func Encode(s Sendable) []byte {
	payload := s.Payload()
	hdr := EmitHeader(s.Type(), uint32(len(payload)))
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, hdr[:]...)
	buf = append(buf, payload...)
	return buf
}

func putLE32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func putLEFloat32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SendCommand sends a named control command, resolved through
// CommandByName — the wire encoding the original driver used for
// user-facing command dispatch.
type SendCommand struct {
	Value CommandCode
}

// NewSendCommand resolves name to its CommandCode. It panics if name is
// not recognized, matching the original driver's KeyError-on-bad-name
// behavior — callers should only pass names from the CommandByName table.
func NewSendCommand(name string) SendCommand {
	c, ok := CommandByName(name)
	if !ok {
		panic(fmt.Sprintf("protocol: unknown command name %q", name))
	}
	return SendCommand{Value: c}
}

func (SendCommand) Type() MessageType { return TypeCommand }
func (s SendCommand) Payload() []byte { return putLE32(uint32(s.Value)) }

// TouchAction identifies a single-touch event's phase.
type TouchAction uint32

const (
	TouchDown TouchAction = 14
	TouchMove TouchAction = 15
	TouchUp   TouchAction = 16
)

// SendTouch reports a single-point touch event. X and Y are in [0,1]
// normalized screen coordinates and are scaled to [0,10000] on the wire.
type SendTouch struct {
	X, Y   float64
	Action TouchAction
}

func (SendTouch) Type() MessageType { return TypeTouch }

func (s SendTouch) Payload() []byte {
	x := uint32(clamp(10000*s.X, 0, 10000))
	y := uint32(clamp(10000*s.Y, 0, 10000))
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(s.Action))
	binary.LittleEndian.PutUint32(buf[4:8], x)
	binary.LittleEndian.PutUint32(buf[8:12], y)
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	return buf
}

// MultiTouchAction identifies a single finger's phase within a
// SendMultiTouch event.
type MultiTouchAction uint32

const (
	MultiTouchUp   MultiTouchAction = 0
	MultiTouchDown MultiTouchAction = 1
	MultiTouchMove MultiTouchAction = 2
)

// TouchPoint is a single finger's state within a multi-touch frame. X and
// Y are unscaled normalized coordinates, unlike SendTouch.
type TouchPoint struct {
	X, Y   float32
	Action MultiTouchAction
}

// SendMultiTouch reports the state of every active touch point in one
// frame. Each point is assigned a sequential id matching its index.
type SendMultiTouch struct {
	Points []TouchPoint
}

func (SendMultiTouch) Type() MessageType { return TypeMultiTouch }

func (s SendMultiTouch) Payload() []byte {
	buf := make([]byte, 0, 16*len(s.Points))
	for i, p := range s.Points {
		buf = append(buf, putLEFloat32(p.X)...)
		buf = append(buf, putLEFloat32(p.Y)...)
		buf = append(buf, putLE32(uint32(p.Action))...)
		buf = append(buf, putLE32(uint32(i))...)
	}
	return buf
}

// SendAudio carries raw PCM samples from the host to the dongle, prefixed
// with the fixed header the original driver always uses for host-originated
// audio.
type SendAudio struct {
	Samples []int16
}

func (SendAudio) Type() MessageType { return TypeAudioData }

func (s SendAudio) Payload() []byte {
	buf := make([]byte, 0, 12+2*len(s.Samples))
	buf = append(buf, putLE32(5)...)
	buf = append(buf, putLEFloat32(0.0)...)
	buf = append(buf, putLE32(3)...)
	for _, v := range s.Samples {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		buf = append(buf, b...)
	}
	return buf
}

// File addresses the dongle treats as configuration endpoints for
// SendFile-family messages.
const (
	FileDPI            = "/tmp/screen_dpi"
	FileNightMode      = "/tmp/night_mode"
	FileHandDriveMode  = "/tmp/hand_drive_mode"
	FileChargeMode     = "/tmp/charge_mode"
	FileBoxName        = "/etc/box_name"
	FileOEMIcon        = "/etc/oem_icon.png"
	FileAirplayConfig  = "/etc/airplay.conf"
	FileIcon120        = "/etc/icon_120x120.png"
	FileIcon180        = "/etc/icon_180x180.png"
	FileIcon256        = "/etc/icon_256x256.png"
	FileAndroidWorkMode = "/etc/android_work_mode"
)

// SendFile writes an arbitrary byte blob to a named virtual file on the
// dongle. FileName is NUL-terminated on the wire.
type SendFile struct {
	Content  []byte
	FileName string
}

func (SendFile) Type() MessageType { return TypeSendFile }

func (s SendFile) Payload() []byte {
	nameBytes := append([]byte(s.FileName), 0)
	buf := make([]byte, 0, 8+len(nameBytes)+len(s.Content))
	buf = append(buf, putLE32(uint32(len(nameBytes)))...)
	buf = append(buf, nameBytes...)
	buf = append(buf, putLE32(uint32(len(s.Content)))...)
	buf = append(buf, s.Content...)
	return buf
}

// NewSendNumber builds a SendFile carrying a little-endian uint32.
func NewSendNumber(value uint32, file string) SendFile {
	return SendFile{Content: putLE32(value), FileName: file}
}

// NewSendBoolean builds a SendFile carrying a 0/1 uint32.
func NewSendBoolean(value bool, file string) SendFile {
	v := uint32(0)
	if value {
		v = 1
	}
	return NewSendNumber(v, file)
}

// NewSendString builds a SendFile carrying an ASCII string.
func NewSendString(value string, file string) SendFile {
	return SendFile{Content: []byte(value), FileName: file}
}

// HeartBeat is the empty keep-alive frame sent on a fixed period.
type HeartBeat struct{}

func (HeartBeat) Type() MessageType { return TypeHeartBeat }
func (HeartBeat) Payload() []byte   { return nil }

// OpenConfig carries the video stream parameters requested of the dongle.
type OpenConfig struct {
	Width         uint32
	Height        uint32
	FPS           uint32
	Format        uint32
	PacketMax     uint32
	IBoxVersion   uint32
	PhoneWorkMode uint32
}

// SendOpen requests that the dongle start its video stream with the given
// parameters.
type SendOpen struct {
	Config OpenConfig
}

func (SendOpen) Type() MessageType { return TypeOpen }

func (s SendOpen) Payload() []byte {
	buf := make([]byte, 0, 28)
	buf = append(buf, putLE32(s.Config.Width)...)
	buf = append(buf, putLE32(s.Config.Height)...)
	buf = append(buf, putLE32(s.Config.FPS)...)
	buf = append(buf, putLE32(s.Config.Format)...)
	buf = append(buf, putLE32(s.Config.PacketMax)...)
	buf = append(buf, putLE32(s.Config.IBoxVersion)...)
	buf = append(buf, putLE32(s.Config.PhoneWorkMode)...)
	return buf
}

// BoxSettingsConfig carries the subset of configuration SendBoxSettings
// reports to the dongle.
type BoxSettingsConfig struct {
	MediaDelay int
	Width      uint32
	Height     uint32
}

// SendBoxSettings reports box settings as a JSON object. SyncTime is Unix
// seconds; callers supply it explicitly since this package may not read
// the system clock.
type SendBoxSettings struct {
	Config   BoxSettingsConfig
	SyncTime int64
}

func (SendBoxSettings) Type() MessageType { return TypeBoxSettings }

func (s SendBoxSettings) Payload() []byte {
	json := fmt.Sprintf(
		`{"mediaDelay":%d,"syncTime":%d,"androidAutoSizeW":%d,"androidAutoSizeH":%d}`,
		s.Config.MediaDelay, s.SyncTime, s.Config.Width, s.Config.Height,
	)
	return []byte(json)
}

// LogoType identifies which on-screen logo a SendLogoType message refers
// to.
type LogoType uint32

const (
	LogoHomeButton LogoType = 1
	LogoSiri       LogoType = 2
)

// SendLogoType tells the dongle which logo to display.
type SendLogoType struct {
	LogoType LogoType
}

func (SendLogoType) Type() MessageType { return TypeLogoType }
func (s SendLogoType) Payload() []byte { return putLE32(uint32(s.LogoType)) }

// IconConfig carries the OEM branding fields SendIconConfig writes to the
// dongle's airplay.conf virtual file.
type IconConfig struct {
	Label string // optional; omitted from the file when empty
}

// NewSendIconConfig builds the SendFile that configures OEM icon branding,
// grounded on the original driver's SendIconConfig helper.
func NewSendIconConfig(cfg IconConfig) SendFile {
	lines := []string{
		"oemIconVisible = 1",
		"name = AutoBox",
		"model = Magic-Car-Link-1.00",
		"oemIconPath = " + FileOEMIcon,
	}
	if cfg.Label != "" {
		lines = append(lines, "oemIconLabel = "+cfg.Label)
	}
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	return SendFile{Content: []byte(content), FileName: FileAirplayConfig}
}

// SendCloseDongle asks the dongle to close its current session.
type SendCloseDongle struct{}

func (SendCloseDongle) Type() MessageType { return TypeCloseDongle }
func (SendCloseDongle) Payload() []byte   { return nil }

// SendDisconnectPhone asks the dongle to disconnect the current phone.
type SendDisconnectPhone struct{}

func (SendDisconnectPhone) Type() MessageType { return TypeDisconnectPhone }
func (SendDisconnectPhone) Payload() []byte   { return nil }
