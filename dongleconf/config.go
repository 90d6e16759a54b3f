/* carplaydongled - host-side protocol engine for CarPlay/Android Auto USB dongles
 *
 * Typed configuration record consumed once by Session.Start.
 */

package dongleconf

import (
	"fmt"

	"github.com/alexpevzner/carplaydongled/protocol"
	"gopkg.in/ini.v1"
)

// HandDrive selects which side of the vehicle the driver sits on, which
// the dongle uses to mirror its UI layout.
type HandDrive uint32

const (
	LHD HandDrive = 0
	RHD HandDrive = 1
)

// WifiBand selects the wifi band the dongle advertises to the phone.
type WifiBand string

const (
	Wifi5GHz   WifiBand = "5ghz"
	Wifi24GHz  WifiBand = "2.4ghz"
)

// MicSource selects whether audio input comes from the head unit's own
// microphone or one built into the dongle.
type MicSource string

const (
	MicOS  MicSource = "os"
	MicBox MicSource = "box"
)

// PhoneTypeConfig carries per-phone-type tuning the engine exposes but
// does not itself consume.
type PhoneTypeConfig struct {
	// FrameInterval is nil when the phone type has no fixed interval.
	FrameInterval *int
}

// Config is the plain record sent to the dongle once at Session.Start.
type Config struct {
	Width         uint32
	Height        uint32
	FPS           uint32
	DPI           uint32
	Format        uint32
	IBoxVersion   uint32
	PacketMax     uint32
	PhoneWorkMode uint32
	NightMode     bool
	BoxName       string
	Hand          HandDrive
	MediaDelay    int
	AudioTransfer bool
	WifiType      WifiBand
	MicType       MicSource

	// AndroidWorkMode is sent during the init burst only when non-nil.
	AndroidWorkMode *bool

	PhoneConfig map[protocol.PhoneType]PhoneTypeConfig

	// StrictPayloadErrors, when true, also counts a payload-read failure
	// toward the session's MAX_ERRORS ceiling. Default false matches the
	// original driver, which only counts header-read/parse failures.
	StrictPayloadErrors bool
}

// Default returns a fresh Config carrying the engine's built-in defaults.
// Unlike a shared mutable package-level default, every call returns an
// independent value safe to mutate.
func Default() Config {
	frameInterval := 5000
	return Config{
		Width:         800,
		Height:        640,
		FPS:           20,
		DPI:           160,
		Format:        5,
		IBoxVersion:   2,
		PacketMax:     49152,
		PhoneWorkMode: 2,
		NightMode:     false,
		BoxName:       "nodePlay",
		Hand:          LHD,
		MediaDelay:    300,
		AudioTransfer: false,
		WifiType:      Wifi5GHz,
		MicType:       MicOS,
		PhoneConfig: map[protocol.PhoneType]PhoneTypeConfig{
			protocol.PhoneTypeCarPlay:     {FrameInterval: &frameInterval},
			protocol.PhoneTypeAndroidAuto: {},
		},
	}
}

// LoadFile reads path as an INI file and overrides any keys it sets on
// top of base, returning the merged Config. Keys the file doesn't mention
// keep base's value. Unknown keys in the [dongle] section are an error,
// matching the fail-fast behavior of a typed configuration loader.
func LoadFile(path string, base Config) (Config, error) {
	cfg := base

	file, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("dongleconf: load %s: %w", path, err)
	}

	sec := file.Section("dongle")

	known := map[string]bool{
		"width": true, "height": true, "fps": true, "dpi": true,
		"format": true, "packet_max": true, "night_mode": true,
		"box_name": true, "hand": true, "media_delay": true,
		"audio_transfer_mode": true, "wifi_type": true, "mic_type": true,
		"android_work_mode": true, "strict_payload_errors": true,
	}
	for _, key := range sec.KeyStrings() {
		if !known[key] {
			return cfg, fmt.Errorf("dongleconf: %s: unknown key %q", path, key)
		}
	}

	if err := loadUint(sec, "width", &cfg.Width); err != nil {
		return cfg, err
	}
	if err := loadUint(sec, "height", &cfg.Height); err != nil {
		return cfg, err
	}
	if err := loadUint(sec, "fps", &cfg.FPS); err != nil {
		return cfg, err
	}
	if err := loadUint(sec, "dpi", &cfg.DPI); err != nil {
		return cfg, err
	}
	if err := loadUint(sec, "format", &cfg.Format); err != nil {
		return cfg, err
	}
	if err := loadUint(sec, "packet_max", &cfg.PacketMax); err != nil {
		return cfg, err
	}
	if sec.HasKey("night_mode") {
		cfg.NightMode = sec.Key("night_mode").MustBool(cfg.NightMode)
	}
	if sec.HasKey("box_name") {
		cfg.BoxName = sec.Key("box_name").String()
	}
	if sec.HasKey("hand") {
		v := sec.Key("hand").MustInt(int(cfg.Hand))
		if v != int(LHD) && v != int(RHD) {
			return cfg, fmt.Errorf("dongleconf: %s: invalid hand value %d", path, v)
		}
		cfg.Hand = HandDrive(v)
	}
	if sec.HasKey("media_delay") {
		cfg.MediaDelay = sec.Key("media_delay").MustInt(cfg.MediaDelay)
	}
	if sec.HasKey("audio_transfer_mode") {
		cfg.AudioTransfer = sec.Key("audio_transfer_mode").MustBool(cfg.AudioTransfer)
	}
	if sec.HasKey("wifi_type") {
		w := WifiBand(sec.Key("wifi_type").String())
		if w != Wifi5GHz && w != Wifi24GHz {
			return cfg, fmt.Errorf("dongleconf: %s: invalid wifi_type %q", path, w)
		}
		cfg.WifiType = w
	}
	if sec.HasKey("mic_type") {
		m := MicSource(sec.Key("mic_type").String())
		if m != MicOS && m != MicBox {
			return cfg, fmt.Errorf("dongleconf: %s: invalid mic_type %q", path, m)
		}
		cfg.MicType = m
	}
	if sec.HasKey("android_work_mode") {
		v := sec.Key("android_work_mode").MustBool(false)
		cfg.AndroidWorkMode = &v
	}
	if sec.HasKey("strict_payload_errors") {
		cfg.StrictPayloadErrors = sec.Key("strict_payload_errors").MustBool(cfg.StrictPayloadErrors)
	}

	return cfg, nil
}

func loadUint(sec *ini.Section, key string, dst *uint32) error {
	if !sec.HasKey(key) {
		return nil
	}
	v, err := sec.Key(key).Uint()
	if err != nil {
		return fmt.Errorf("dongleconf: bad value for %q: %w", key, err)
	}
	*dst = uint32(v)
	return nil
}
