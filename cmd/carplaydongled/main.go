/* carplaydongled - host-side protocol engine for CarPlay/Android Auto USB dongles
 *
 * The main function
 */

package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alexpevzner/carplaydongled/dongle"
	"github.com/alexpevzner/carplaydongled/dongleconf"
	"github.com/alexpevzner/carplaydongled/internal/logger"
	"github.com/alexpevzner/carplaydongled/protocol"
	"github.com/alexpevzner/carplaydongled/usbtransport"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/gousb"
)

const usageText = `Usage:
    %s mode [options]

Modes are:
    run    - discover a dongle and drive it until it disconnects or fails
    check  - list candidate USB devices and exit

Options are:
    -v          - verbose console logging (repeat for more detail, up to -vvv)
    -c FILE     - load dongle configuration from FILE
`

// runMode is the program's run mode.
type runMode int

const (
	modeDefault runMode = iota
	modeRun
	modeCheck
)

func (m runMode) String() string {
	switch m {
	case modeRun:
		return "run"
	case modeCheck:
		return "check"
	default:
		return "default"
	}
}

// runParameters holds the parsed command line.
type runParameters struct {
	Mode       runMode
	Verbosity  int
	ConfigFile string
}

func usage() {
	fmt.Printf(usageText, os.Args[0])
	os.Exit(0)
}

func usageError(format string, args ...interface{}) {
	if format != "" {
		fmt.Printf(format+"\n", args...)
	}
	fmt.Printf("Try %s -h for more information\n", os.Args[0])
	os.Exit(1)
}

func parseArgv() (params runParameters) {
	modes := 0

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "-help" || arg == "--help":
			usage()
		case arg == "run":
			params.Mode = modeRun
			modes++
		case arg == "check":
			params.Mode = modeCheck
			modes++
		case arg == "-v" || arg == "-vv" || arg == "-vvv":
			params.Verbosity += len(arg) - 1
		case arg == "-c":
			if i+1 >= len(args) {
				usageError("-c requires a file argument")
			}
			i++
			params.ConfigFile = args[i]
		default:
			usageError("Invalid argument %s", arg)
		}
	}

	if modes == 0 {
		usageError("Missing run mode")
	}
	if modes > 1 {
		usageError("Conflicting run modes")
	}

	return
}

func levelForVerbosity(v int) logger.Level {
	switch {
	case v >= 3:
		return logger.LevelAll
	case v == 2:
		return logger.LevelError | logger.LevelInfo | logger.LevelDebug
	case v == 1:
		return logger.LevelError | logger.LevelInfo
	default:
		return logger.LevelError
	}
}

// candidateDevices lists every USB device matching a known dongle
// VID/PID, for "check" mode.
func candidateDevices(ctx *gousb.Context) ([]*gousb.DeviceDesc, error) {
	var descs []*gousb.DeviceDesc
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if usbtransport.Matches(desc, usbtransport.KnownDevices) {
			descs = append(descs, desc)
		}
		return false
	})
	for _, d := range devices {
		d.Close()
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(descs, func(i, j int) bool {
		return descs[i].Address < descs[j].Address
	})
	return descs, nil
}

func runCheck(log *logger.Logger, ctx *gousb.Context) {
	descs, err := candidateDevices(ctx)
	if err != nil {
		log.Error("can't enumerate USB devices: %s", err)
		os.Exit(1)
	}
	if len(descs) == 0 {
		fmt.Println("no candidate dongle devices found")
		return
	}
	fmt.Println("candidate dongle devices:")
	for i, desc := range descs {
		fmt.Printf(" %3d. bus %d addr %d  %04x:%04x\n",
			i+1, desc.Bus, desc.Address, desc.Vendor, desc.Product)
	}
}

// discover polls for a known dongle using an exponential backoff, capped
// at 30 seconds, so a caller left running unattended doesn't spin a tight
// loop while waiting for a phone to plug the dongle in.
func discover(ctx *gousb.Context) (*gousb.Device, error) {
	var dev *gousb.Device

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0 // retry forever

	op := func() error {
		d, err := usbtransport.Find(ctx, usbtransport.KnownDevices)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("no dongle found")
		}
		dev = d
		return nil
	}

	err := backoff.Retry(op, policy)
	return dev, err
}

func runOnce(log *logger.Logger, ctx *gousb.Context, cfg dongleconf.Config) error {
	log.Info("searching for a dongle")
	device, err := discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	log.Info("found device %04x:%04x", device.Desc.Vendor, device.Desc.Product)

	sess := dongle.New(log)
	if err := sess.Initialize(device); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	failed := make(chan struct{})
	sess.OnFailure(func() {
		log.Error("session failed after %d errors", sess.ErrorCount())
		close(failed)
	})
	sess.OnMessage(func(msg protocol.Message) {
		log.Trace("received %s", msg.Type())
	})

	if err := sess.Start(cfg); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer sess.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-failed:
	case <-sigCh:
		log.Info("signal received, shutting down")
	}
	return nil
}

func main() {
	params := parseArgv()
	log := logger.ToColorConsole(levelForVerbosity(params.Verbosity))

	cfg := dongleconf.Default()
	if params.ConfigFile != "" {
		var err error
		cfg, err = dongleconf.LoadFile(params.ConfigFile, cfg)
		if err != nil {
			log.Error("%s", err)
			os.Exit(1)
		}
	}

	ctx := gousb.NewContext()
	defer ctx.Close()

	switch params.Mode {
	case modeCheck:
		runCheck(log, ctx)
	case modeRun:
		if err := runOnce(log, ctx, cfg); err != nil {
			log.Error("%s", err)
			os.Exit(1)
		}
	}
}
