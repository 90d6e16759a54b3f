package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrPayloadTooShort is returned by a message decoder when the payload is
// smaller than the fixed-size fields it expects.
var ErrPayloadTooShort = errors.New("protocol: payload too short")

// Opened reports the video stream parameters the dongle actually opened
// with, echoing (and possibly adjusting) the values sent in Open.
type Opened struct {
	Width      uint32
	Height     uint32
	FPS        uint32
	Format     uint32
	PacketMax  uint32
	IBox       uint32
	PhoneMode  uint32
}

func (Opened) Type() MessageType { return TypeOpen }

func decodeOpened(data []byte) (Message, error) {
	if len(data) < 28 {
		return nil, fmt.Errorf("Opened: %w", ErrPayloadTooShort)
	}
	return Opened{
		Width:     le32(data, 0),
		Height:    le32(data, 4),
		FPS:       le32(data, 8),
		Format:    le32(data, 12),
		PacketMax: le32(data, 16),
		IBox:      le32(data, 20),
		PhoneMode: le32(data, 24),
	}, nil
}

// Plugged announces that a phone has connected, naming its mirroring
// protocol and, for phones that reported a length-8 payload, whether wifi
// is available.
type Plugged struct {
	PhoneType PhoneType
	WifiAvail bool
	Wifi      uint32
}

func (Plugged) Type() MessageType { return TypePlugged }

func decodePlugged(data []byte) (Message, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("Plugged: %w", ErrPayloadTooShort)
	}
	p := Plugged{PhoneType: PhoneType(le32(data, 0))}
	if len(data) == 8 {
		p.WifiAvail = true
		p.Wifi = le32(data, 4)
	}
	return p, nil
}

// Unplugged announces that the previously connected phone has disconnected.
// It carries no payload.
type Unplugged struct{}

func (Unplugged) Type() MessageType { return TypeUnplugged }

func decodeUnplugged(data []byte) (Message, error) {
	return Unplugged{}, nil
}

// Phase reports a numbered lifecycle phase transition.
type Phase struct {
	Phase uint32
}

func (Phase) Type() MessageType { return TypePhase }

func decodePhase(data []byte) (Message, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("Phase: %w", ErrPayloadTooShort)
	}
	return Phase{Phase: le32(data, 0)}, nil
}

// Command reports a control command code sent by the dongle.
type Command struct {
	Value CommandCode
}

func (Command) Type() MessageType { return TypeCommand }

func decodeCommand(data []byte) (Message, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("Command: %w", ErrPayloadTooShort)
	}
	return Command{Value: CommandCode(le32(data, 0))}, nil
}

// ManufacturerInfo reports a pair of opaque manufacturer-defined codes.
type ManufacturerInfo struct {
	A uint32
	B uint32
}

func (ManufacturerInfo) Type() MessageType { return TypeManufacturerInfo }

func decodeManufacturerInfo(data []byte) (Message, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("ManufacturerInfo: %w", ErrPayloadTooShort)
	}
	return ManufacturerInfo{A: le32(data, 0), B: le32(data, 4)}, nil
}

// SoftwareVersion reports the dongle's firmware version as an ASCII
// string.
type SoftwareVersion struct {
	Version string
}

func (SoftwareVersion) Type() MessageType { return TypeSoftwareVersion }

func decodeSoftwareVersion(data []byte) (Message, error) {
	return SoftwareVersion{Version: string(data)}, nil
}

// BluetoothAddress reports the dongle's Bluetooth MAC address as an ASCII
// string.
type BluetoothAddress struct {
	Address string
}

func (BluetoothAddress) Type() MessageType { return TypeBluetoothAddress }

func decodeBluetoothAddress(data []byte) (Message, error) {
	return BluetoothAddress{Address: string(data)}, nil
}

// BluetoothPIN reports the pairing PIN to present to the user.
type BluetoothPIN struct {
	PIN string
}

func (BluetoothPIN) Type() MessageType { return TypeBluetoothPIN }

func decodeBluetoothPIN(data []byte) (Message, error) {
	return BluetoothPIN{PIN: string(data)}, nil
}

// BluetoothDeviceName reports the name the dongle advertises over
// Bluetooth.
type BluetoothDeviceName struct {
	Name string
}

func (BluetoothDeviceName) Type() MessageType { return TypeBluetoothDeviceName }

func decodeBluetoothDeviceName(data []byte) (Message, error) {
	return BluetoothDeviceName{Name: string(data)}, nil
}

// WifiDeviceName reports the SSID the dongle advertises over wifi.
type WifiDeviceName struct {
	Name string
}

func (WifiDeviceName) Type() MessageType { return TypeWifiDeviceName }

func decodeWifiDeviceName(data []byte) (Message, error) {
	return WifiDeviceName{Name: string(data)}, nil
}

// HiCarLink reports a link URI used for HiCar pairing.
type HiCarLink struct {
	Link string
}

func (HiCarLink) Type() MessageType { return TypeHiCarLink }

func decodeHiCarLink(data []byte) (Message, error) {
	return HiCarLink{Link: string(data)}, nil
}

// BluetoothPairedList reports the dongle's list of previously paired
// Bluetooth devices, as an opaque ASCII-encoded blob.
type BluetoothPairedList struct {
	Data string
}

func (BluetoothPairedList) Type() MessageType { return TypeBluetoothPairedList }

func decodeBluetoothPairedList(data []byte) (Message, error) {
	return BluetoothPairedList{Data: string(data)}, nil
}

// BoxSettings reports the dongle's current settings as a raw JSON object.
// Decoding the JSON is left to the caller.
type BoxSettings struct {
	JSON []byte
}

func (BoxSettings) Type() MessageType { return TypeBoxSettings }

func decodeBoxSettings(data []byte) (Message, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	return BoxSettings{JSON: buf}, nil
}

// AudioData carries one frame of the audio stream: either PCM samples, a
// discrete AudioCommand, or a volume/duration pair, depending on the
// trailing payload's length.
type AudioData struct {
	DecodeType     uint32
	Volume         float32
	AudioType      uint32
	Command        *AudioCommand
	VolumeDuration *float32
	Samples        []int16
}

func (AudioData) Type() MessageType { return TypeAudioData }

func decodeAudioData(data []byte) (Message, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("AudioData: %w", ErrPayloadTooShort)
	}
	a := AudioData{
		DecodeType: le32(data, 0),
		Volume:     leFloat32(data, 4),
		AudioType:  le32(data, 8),
	}
	rest := data[12:]
	switch len(rest) {
	case 1:
		c := AudioCommand(int8(rest[0]))
		a.Command = &c
	case 4:
		v := leFloat32(rest, 0)
		a.VolumeDuration = &v
	default:
		samples := make([]int16, len(rest)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(rest[i*2:]))
		}
		a.Samples = samples
	}
	return a, nil
}

// VideoData carries one frame (or fragment) of H.264 video.
type VideoData struct {
	Width   uint32
	Height  uint32
	Flags   uint32
	Length  uint32
	Unknown uint32
	Data    []byte
}

func (VideoData) Type() MessageType { return TypeVideoData }

func decodeVideoData(data []byte) (Message, error) {
	if len(data) < 20 {
		return nil, fmt.Errorf("VideoData: %w", ErrPayloadTooShort)
	}
	buf := make([]byte, len(data)-20)
	copy(buf, data[20:])
	return VideoData{
		Width:   le32(data, 0),
		Height:  le32(data, 4),
		Flags:   le32(data, 8),
		Length:  le32(data, 12),
		Unknown: le32(data, 16),
		Data:    buf,
	}, nil
}

// MediaData carries "now playing" metadata. Exactly one of JSON or
// AlbumCover is set, selected by the frame's embedded media-type field.
type MediaData struct {
	MediaType  MediaType
	JSON       []byte
	AlbumCover []byte
}

func (MediaData) Type() MessageType { return TypeMediaData }

func decodeMediaData(data []byte) (Message, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("MediaData: %w", ErrPayloadTooShort)
	}
	mt := MediaType(le32(data, 0))
	m := MediaData{MediaType: mt}
	switch mt {
	case MediaTypeAlbumCover:
		buf := make([]byte, len(data)-4)
		copy(buf, data[4:])
		m.AlbumCover = buf
	case MediaTypeData:
		// The original driver strips a trailing byte before parsing JSON.
		end := len(data)
		if end > 4 {
			end--
		}
		buf := make([]byte, end-4)
		copy(buf, data[4:end])
		m.JSON = buf
	default:
		return nil, fmt.Errorf("MediaData: unrecognized media type %d", mt)
	}
	return m, nil
}

func le32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

func leFloat32(b []byte, off int) float32 {
	bits := binary.LittleEndian.Uint32(b[off : off+4])
	return math.Float32frombits(bits)
}
