package dongle

import (
	"time"

	"github.com/alexpevzner/carplaydongled/dongleconf"
	"github.com/alexpevzner/carplaydongled/protocol"
)

// initBurst builds the fixed, ordered sequence of messages Start emits
// before spawning the background tasks. The wifiConnect command that
// follows the 1-second pause is sent separately by Start, not from here,
// since its delay is part of the startup choreography rather than the
// burst itself.
func initBurst(cfg dongleconf.Config) []protocol.Sendable {
	msgs := []protocol.Sendable{
		protocol.NewSendNumber(cfg.DPI, protocol.FileDPI),
		protocol.SendOpen{Config: protocol.OpenConfig{
			Width:         cfg.Width,
			Height:        cfg.Height,
			FPS:           cfg.FPS,
			Format:        cfg.Format,
			PacketMax:     cfg.PacketMax,
			IBoxVersion:   cfg.IBoxVersion,
			PhoneWorkMode: cfg.PhoneWorkMode,
		}},
		protocol.NewSendBoolean(cfg.NightMode, protocol.FileNightMode),
		protocol.NewSendNumber(uint32(cfg.Hand), protocol.FileHandDriveMode),
		protocol.NewSendBoolean(true, protocol.FileChargeMode),
		protocol.NewSendString(cfg.BoxName, protocol.FileBoxName),
		protocol.SendBoxSettings{
			Config: protocol.BoxSettingsConfig{
				MediaDelay: cfg.MediaDelay,
				Width:      cfg.Width,
				Height:     cfg.Height,
			},
			SyncTime: time.Now().Unix(),
		},
		protocol.NewSendCommand("wifiEnable"),
		wifiBandCommand(cfg.WifiType),
		micCommand(cfg.MicType),
		audioTransferCommand(cfg.AudioTransfer),
	}

	if cfg.AndroidWorkMode != nil {
		msgs = append(msgs, protocol.NewSendBoolean(*cfg.AndroidWorkMode, protocol.FileAndroidWorkMode))
	}

	return msgs
}

func wifiBandCommand(w dongleconf.WifiBand) protocol.Sendable {
	if w == dongleconf.Wifi5GHz {
		return protocol.NewSendCommand("wifi5g")
	}
	return protocol.NewSendCommand("wifi24g")
}

func micCommand(m dongleconf.MicSource) protocol.Sendable {
	if m == dongleconf.MicBox {
		return protocol.NewSendCommand("boxMic")
	}
	return protocol.NewSendCommand("mic")
}

func audioTransferCommand(on bool) protocol.Sendable {
	if on {
		return protocol.NewSendCommand("audioTransferOn")
	}
	return protocol.NewSendCommand("audioTransferOff")
}
