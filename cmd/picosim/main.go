// picosim runs the device controller state machine on a workstation: the
// physical toggle becomes the Enter key, the LCD becomes two lines redrawn
// in the terminal, and the serial link is either a real port or a TCP
// connection to a picoswitchd test harness.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"picoswitch/internal/device"
	"picoswitch/internal/serialio"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serialPort  string
		connectAddr string
		baudRate    int
		heartbeatMS int
		debounceMS  int
		width       int
	)

	cmd := &cobra.Command{
		Use:           "picosim",
		Short:         "Run the device controller loop with a simulated switch and display",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serialPort != "" && connectAddr != "" {
				return errors.New("--serial and --connect are mutually exclusive")
			}
			return run(serialPort, connectAddr, baudRate, device.Config{
				Heartbeat:    time.Duration(heartbeatMS) * time.Millisecond,
				Debounce:     time.Duration(debounceMS) * time.Millisecond,
				DisplayWidth: width,
			})
		},
	}

	cmd.Flags().StringVar(&serialPort, "serial", "", "Serial port to the host (auto-detect when --connect is unset and this is empty)")
	cmd.Flags().StringVar(&connectAddr, "connect", "", "TCP address of a line-protocol peer instead of a serial port")
	cmd.Flags().IntVar(&baudRate, "baud", serialio.DefaultBaudRate, "Serial baud rate")
	cmd.Flags().IntVar(&heartbeatMS, "heartbeat-ms", 2000, "Status query interval in milliseconds")
	cmd.Flags().IntVar(&debounceMS, "debounce-ms", 50, "Switch debounce window in milliseconds")
	cmd.Flags().IntVar(&width, "width", 16, "Display width in characters")
	return cmd
}

// lineTransport is the host-style transport both serialio types satisfy.
type lineTransport interface {
	ReadLine() (string, bool, error)
	WriteLine(string) error
	Close() error
}

func openTransport(serialPort, connectAddr string, baud int) (lineTransport, error) {
	if connectAddr != "" {
		c, err := net.Dial("tcp", connectAddr)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", connectAddr, err)
		}
		return serialio.NewConn(c, 10*time.Millisecond), nil
	}
	if serialPort == "" {
		var err error
		serialPort, err = serialio.Detect()
		if err != nil {
			return nil, err
		}
	}
	return serialio.Open(serialPort, baud, 10*time.Millisecond)
}

func run(serialPort, connectAddr string, baud int, cfg device.Config) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "picosim").Logger()
	cfg.Logger = logger

	tr, err := openTransport(serialPort, connectAddr, baud)
	if err != nil {
		return err
	}
	defer tr.Close()

	sw := &keyboardSwitch{}
	go sw.watch(os.Stdin)
	fmt.Println("Press Enter to toggle the switch. Ctrl+C exits.")

	ctrl := device.New(sw, &termDisplay{out: os.Stdout}, &deviceTransport{tr: tr, log: logger}, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// keyboardSwitch toggles on every line read from stdin.
type keyboardSwitch struct {
	on atomic.Bool
}

func (s *keyboardSwitch) Read() bool { return s.on.Load() }

func (s *keyboardSwitch) watch(in *os.File) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		s.on.Store(!s.on.Load())
	}
}

// termDisplay redraws the two display lines in place.
type termDisplay struct {
	out *os.File
}

func (d *termDisplay) Render(line1, line2 string) error {
	_, err := fmt.Fprintf(d.out, "\r[%s]\n[%s]\033[F", line1, line2)
	return err
}

func (d *termDisplay) SetBacklight(on bool) {}

// deviceTransport adapts the host-style transport to the device interface:
// read errors present as a quiet link, exactly how a dead serial cable
// behaves on the real device.
type deviceTransport struct {
	tr  lineTransport
	log zerolog.Logger
}

func (t *deviceTransport) ReadLine() (string, bool) {
	line, ok, err := t.tr.ReadLine()
	if err != nil {
		t.log.Debug().Err(err).Msg("transport read failed")
		return "", false
	}
	return line, ok
}

func (t *deviceTransport) WriteLine(line string) error {
	return t.tr.WriteLine(line)
}
