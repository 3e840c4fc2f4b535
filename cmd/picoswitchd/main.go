// picoswitchd bridges the device's serial commands to the container runtime:
// it listens for CMD: lines, runs compose up/down detached, and answers every
// command with a STAT: line built from the runtime state and current
// GPU/RAM usage.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"picoswitch/internal/common/fsutil"
	"picoswitch/internal/compose"
	"picoswitch/internal/config"
	"picoswitch/internal/hostd"
	"picoswitch/internal/httpapi"
	"picoswitch/internal/serialio"
	"picoswitch/internal/sysinfo"
)

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath     string
		serialPort  string
		baudRate    int
		composeFile string
		container   string
		httpAddr    string
		readTimeout int
	)

	cmd := &cobra.Command{
		Use:           "picoswitchd",
		Short:         "Bridge device serial commands to the container runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{
				SerialPort:    serialPort,
				BaudRate:      baudRate,
				ComposeFile:   composeFile,
				Container:     container,
				HTTPAddr:      httpAddr,
				ReadTimeoutMS: readTimeout,
			}
			if cfgPath != "" {
				fileCfg, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("loading config %s: %w", cfgPath, err)
				}
				mergeConfig(&cfg, fileCfg, cmd)
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", envDefault("PICOSWITCH_CONFIG", ""), "Optional config file (.yaml/.json/.toml)")
	cmd.Flags().StringVarP(&serialPort, "port", "p", envDefault("PICOSWITCH_PORT", ""), "Serial port (auto-detect if omitted)")
	cmd.Flags().IntVar(&baudRate, "baud", serialio.DefaultBaudRate, "Serial baud rate")
	cmd.Flags().StringVarP(&composeFile, "compose-file", "f", envDefault("PICOSWITCH_COMPOSE_FILE", "docker-compose.yml"), "Path to the compose file")
	cmd.Flags().StringVar(&container, "container", envDefault("PICOSWITCH_CONTAINER", "llama-server"), "Managed container name")
	cmd.Flags().StringVar(&httpAddr, "http-addr", envDefault("PICOSWITCH_HTTP_ADDR", ""), "HTTP listen address for /status and /metrics (empty disables)")
	cmd.Flags().IntVar(&readTimeout, "read-timeout-ms", 100, "Serial read timeout per iteration in milliseconds")
	return cmd
}

// mergeConfig fills cfg from the file for every flag the user did not set
// explicitly; flags win over the file.
func mergeConfig(cfg *config.Config, file config.Config, cmd *cobra.Command) {
	if !cmd.Flags().Changed("port") && file.SerialPort != "" {
		cfg.SerialPort = file.SerialPort
	}
	if !cmd.Flags().Changed("baud") && file.BaudRate != 0 {
		cfg.BaudRate = file.BaudRate
	}
	if !cmd.Flags().Changed("compose-file") && file.ComposeFile != "" {
		cfg.ComposeFile = file.ComposeFile
	}
	if !cmd.Flags().Changed("container") && file.Container != "" {
		cfg.Container = file.Container
	}
	if !cmd.Flags().Changed("http-addr") && file.HTTPAddr != "" {
		cfg.HTTPAddr = file.HTTPAddr
	}
	if !cmd.Flags().Changed("read-timeout-ms") && file.ReadTimeoutMS != 0 {
		cfg.ReadTimeoutMS = file.ReadTimeoutMS
	}
}

func serve(cfg config.Config) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "picoswitchd").Logger()

	composeFile, err := fsutil.ExpandHome(cfg.ComposeFile)
	if err != nil {
		return err
	}
	if !fsutil.PathExists(composeFile) {
		return fmt.Errorf("compose file not found: %s", composeFile)
	}

	port := cfg.SerialPort
	if port == "" {
		port, err = serialio.Detect()
		if err != nil {
			return err
		}
	}

	readTimeout := time.Duration(cfg.ReadTimeoutMS) * time.Millisecond
	if readTimeout <= 0 {
		readTimeout = 100 * time.Millisecond
	}
	tr, err := serialio.Open(port, cfg.BaudRate, readTimeout)
	if err != nil {
		return err
	}
	defer tr.Close()

	logger.Info().Str("port", port).Str("compose_file", composeFile).Msg("starting")

	rt := compose.New(composeFile, cfg.Container, logger)
	daemon := hostd.New(rt, sysinfo.NewSampler(), tr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.NewMux(daemon, logger)}
		go func() {
			logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server error")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("shutting down")
	return nil
}
