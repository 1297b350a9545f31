package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/s0up4200/trctl/config"
	"github.com/s0up4200/trctl/transmission"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *transmission.Client

	// Command flags
	debugRPC bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trctl",
	Short: "Manage torrents on a Transmission daemon over its RPC API",
	Long: `trctl is a CLI tool for listing, inspecting, relocating, adding and
removing torrents on a remote Transmission daemon.

The session id handshake required by the Transmission RPC API is handled
transparently.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugRPC, "debug", false, "trace RPC requests and responses")
}

// initializeApp initializes the configuration and the Transmission client
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override debug from command line if specified
	if cmd.Flags().Changed("debug") {
		cfg.Transmission.Debug = debugRPC
	}

	// RPC traces are debug level
	if cfg.Transmission.Debug {
		cfg.Logging.Level = "debug"
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	client, err = transmission.NewClient(transmission.Config{
		URL:      cfg.Transmission.URL,
		Username: cfg.Transmission.Username,
		Password: cfg.Transmission.Password,
		Fields:   cfg.Transmission.Fields,
		Debug:    cfg.Transmission.Debug,
	}, logger,
		transmission.WithTimeout(cfg.Transmission.Timeout),
		transmission.WithUserAgent("trctl/"+version),
	)
	if err != nil {
		return fmt.Errorf("failed to create Transmission client: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stderr
	} else {
		// Console format; no colour when stderr is redirected
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
		}
	}

	if cfg.File != "" {
		// Files always get JSON lines
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		output = zerolog.MultiLevelWriter(output, file)
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
