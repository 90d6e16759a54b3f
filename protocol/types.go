package protocol

// MessageType identifies the payload shape following a frame header. The
// same type space is shared between inbound and outbound frames; not every
// code is legal in both directions.
type MessageType uint32

const (
	TypeOpen                MessageType = 0x01
	TypePlugged              MessageType = 0x02
	TypePhase                MessageType = 0x03
	TypeUnplugged            MessageType = 0x04
	TypeTouch                MessageType = 0x05
	TypeVideoData            MessageType = 0x06
	TypeAudioData            MessageType = 0x07
	TypeCommand              MessageType = 0x08
	TypeLogoType             MessageType = 0x09
	TypeBluetoothAddress     MessageType = 0x0A
	TypeBluetoothPIN         MessageType = 0x0C
	TypeBluetoothDeviceName  MessageType = 0x0D
	TypeWifiDeviceName       MessageType = 0x0E
	TypeDisconnectPhone      MessageType = 0x0F
	TypeBluetoothPairedList  MessageType = 0x12
	TypeManufacturerInfo     MessageType = 0x14
	TypeCloseDongle          MessageType = 0x15
	TypeMultiTouch           MessageType = 0x17
	TypeHiCarLink            MessageType = 0x18
	TypeBoxSettings          MessageType = 0x19
	TypeMediaData            MessageType = 0x2A
	TypeSendFile             MessageType = 0x99
	TypeHeartBeat            MessageType = 0xAA
	TypeSoftwareVersion      MessageType = 0xCC
)

// typeNames holds the display name for every recognized MessageType. An
// unlisted code is still a legal wire value (§3 treats it as opaque-skip,
// not an error) — it just has no human-readable name.
var typeNames = map[MessageType]string{
	TypeOpen:               "Open",
	TypePlugged:            "Plugged",
	TypePhase:              "Phase",
	TypeUnplugged:          "Unplugged",
	TypeTouch:              "Touch",
	TypeVideoData:          "VideoData",
	TypeAudioData:          "AudioData",
	TypeCommand:            "Command",
	TypeLogoType:           "LogoType",
	TypeBluetoothAddress:   "BluetoothAddress",
	TypeBluetoothPIN:       "BluetoothPIN",
	TypeBluetoothDeviceName: "BluetoothDeviceName",
	TypeWifiDeviceName:     "WifiDeviceName",
	TypeDisconnectPhone:    "DisconnectPhone",
	TypeBluetoothPairedList: "BluetoothPairedList",
	TypeManufacturerInfo:   "ManufacturerInfo",
	TypeCloseDongle:        "CloseDongle",
	TypeMultiTouch:         "MultiTouch",
	TypeHiCarLink:          "HiCarLink",
	TypeBoxSettings:        "BoxSettings",
	TypeMediaData:          "MediaData",
	TypeSendFile:           "SendFile",
	TypeHeartBeat:          "HeartBeat",
	TypeSoftwareVersion:    "SoftwareVersion",
}

// String renders a MessageType as its symbolic name, falling back to its
// numeric form for codes this module doesn't recognize.
func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmtUnknownType(t)
}

func fmtUnknownType(t MessageType) string {
	const hexdigits = "0123456789abcdef"
	v := uint32(t)
	buf := [10]byte{'0', 'x'}
	for i := 9; i >= 2; i-- {
		buf[i] = hexdigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}

// Message is implemented by every decoded inbound payload.
type Message interface {
	Type() MessageType
}

// PhoneType identifies which mirroring protocol a connected phone is
// speaking, as reported in a Plugged message.
type PhoneType uint32

const (
	PhoneTypeAndroidMirror PhoneType = 1
	PhoneTypeCarPlay       PhoneType = 3
	PhoneTypeIPhoneMirror  PhoneType = 4
	PhoneTypeAndroidAuto   PhoneType = 5
	PhoneTypeHiCar         PhoneType = 6
)

// AudioCommand enumerates the discrete (no-payload) audio control
// sub-messages carried inside an AudioData frame.
type AudioCommand int32

const (
	AudioOutputStart    AudioCommand = 1
	AudioOutputStop     AudioCommand = 2
	AudioInputConfig    AudioCommand = 3
	AudioPhonecallStart AudioCommand = 4
	AudioPhonecallStop  AudioCommand = 5
	AudioNaviStart      AudioCommand = 6
	AudioNaviStop       AudioCommand = 7
	AudioSiriStart      AudioCommand = 8
	AudioSiriStop       AudioCommand = 9
	AudioMediaStart     AudioCommand = 10
	AudioMediaStop      AudioCommand = 11
	AudioAlertStart     AudioCommand = 12
	AudioAlertStop      AudioCommand = 13
)

// MediaType distinguishes the two payload shapes carried in a MediaData
// frame: structured JSON "now playing" metadata, or an album cover image.
type MediaType uint32

const (
	MediaTypeData       MediaType = 1
	MediaTypeAlbumCover MediaType = 3
)

// AudioFormat describes the PCM layout implied by an AudioData frame's
// decode-type field.
type AudioFormat struct {
	Frequency int
	Channels  int
	BitDepth  int
	Format    string
	MimeType  string
}

// audioFormats mirrors the original driver's DECODE_TYPE_MAP.
var audioFormats = map[uint32]AudioFormat{
	1: {44100, 2, 16, "S16LE", "audio/L16; rate=44100; channels=2"},
	2: {44100, 2, 16, "S16LE", "audio/L16; rate=44100; channels=2"},
	3: {8000, 1, 16, "S16LE", "audio/L16; rate=8000; channels=1"},
	4: {48000, 2, 16, "S16LE", "audio/L16; rate=48000; channels=2"},
	5: {16000, 1, 16, "S16LE", "audio/L16; rate=16000; channels=1"},
	6: {24000, 1, 16, "S16LE", "audio/L16; rate=24000; channels=1"},
	7: {16000, 2, 16, "S16LE", "audio/L16; rate=16000; channels=2"},
}

// LookupAudioFormat returns the PCM format implied by an AudioData frame's
// decode-type field, and whether that decode type is recognized.
func LookupAudioFormat(decodeType uint32) (AudioFormat, bool) {
	f, ok := audioFormats[decodeType]
	return f, ok
}
