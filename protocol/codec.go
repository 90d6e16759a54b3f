package protocol

import "fmt"

// decoders maps every inbound MessageType that carries a payload decoder
// to its decode function. Types absent from this table (MultiTouch, Touch,
// LogoType, SendFile, HeartBeat are outbound-only; Unplugged has its own
// zero-payload entry below) are not decodable inbound payloads.
var decoders = map[MessageType]func([]byte) (Message, error){
	TypeOpen:                decodeOpened,
	TypePlugged:             decodePlugged,
	TypePhase:               decodePhase,
	TypeCommand:             decodeCommand,
	TypeManufacturerInfo:    decodeManufacturerInfo,
	TypeSoftwareVersion:     decodeSoftwareVersion,
	TypeBluetoothAddress:    decodeBluetoothAddress,
	TypeBluetoothPIN:        decodeBluetoothPIN,
	TypeBluetoothDeviceName: decodeBluetoothDeviceName,
	TypeWifiDeviceName:      decodeWifiDeviceName,
	TypeHiCarLink:           decodeHiCarLink,
	TypeBluetoothPairedList: decodeBluetoothPairedList,
	TypeBoxSettings:         decodeBoxSettings,
	TypeAudioData:           decodeAudioData,
	TypeVideoData:           decodeVideoData,
	TypeMediaData:           decodeMediaData,
	TypeUnplugged:           decodeUnplugged,
}

// DecodeResult is the outcome of decoding one frame's payload. Exactly one
// of Message or Skipped is meaningful: a recognized type with a decode
// error never happens silently — Err is set instead.
type DecodeResult struct {
	Message Message
	Skipped bool
	Err     error
}

// Decode interprets a frame's payload according to its header type. Codes
// this package doesn't recognize are reported as Skipped — per the wire
// format's design, an unrecognized type is not a framing error, it is
// opaque data the caller is free to ignore.
func Decode(h Header, payload []byte) DecodeResult {
	decode, ok := decoders[h.Type]
	if !ok {
		return DecodeResult{Skipped: true}
	}
	msg, err := decode(payload)
	if err != nil {
		return DecodeResult{Err: fmt.Errorf("decode %s: %w", h.Type, err)}
	}
	return DecodeResult{Message: msg}
}
