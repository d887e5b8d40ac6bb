package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/logstream/internal/config"
	"github.com/harun/logstream/internal/logger"
	"github.com/harun/logstream/internal/observability"
	"github.com/harun/logstream/pkg/gateway"
	"github.com/harun/logstream/pkg/session"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveOpts struct {
	host     string
	port     int
	prefixes []string
	baseDir  string
	lines    int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the log stream server",
	Long: `Start the WebSocket log stream server in the foreground.
Clients connect to ws://HOST:PORT/path/to/file.log, optionally with ?tail=1.
Only files under an allowed root (--prefix or tail.allowed_roots) are served.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&serveOpts.host, "host", "127.0.0.1", "host to listen on")
	flags.IntVar(&serveOpts.port, "port", 8765, "port to listen on")
	flags.StringArrayVar(&serveOpts.prefixes, "prefix", nil, "allowed log directory (repeatable)")
	flags.StringVar(&serveOpts.baseDir, "base-dir", ".", "directory request paths are resolved against")
	flags.IntVar(&serveOpts.lines, "lines", 1000, "number of lines in the initial snapshot")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	pidPath := getPIDFilePath()
	if isRunning(pidPath) {
		return fmt.Errorf("server is already running (PID file: %s)", pidPath)
	}
	if err := writePIDFile(pidPath); err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log.Zerolog(), nil)
}

// applyServeFlags overlays explicitly set flags on the loaded config.
// --prefix entries are added to the configured roots.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = serveOpts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = serveOpts.port
	}
	if flags.Changed("base-dir") {
		cfg.Tail.BaseDir = serveOpts.baseDir
	}
	if flags.Changed("lines") {
		cfg.Tail.NumLines = serveOpts.lines
	}
	cfg.AddRoots(serveOpts.prefixes...)
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
}

// serve runs the server until ctx is done. ready, if set, is called with the
// bound address once the listener is up.
func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger, ready func(net.Addr)) error {
	roots, err := cfg.Roots()
	if err != nil {
		return fmt.Errorf("invalid allowed roots: %w", err)
	}

	handler, err := session.NewHandler(session.Config{
		Roots:             roots,
		NumLines:          cfg.Tail.NumLines,
		PollInterval:      cfg.Tail.PollInterval,
		HeartbeatInterval: cfg.Tail.HeartbeatInterval,
		HeartbeatTimeout:  cfg.Tail.HeartbeatTimeout,
		Logger:            log.With().Str("component", "session").Logger(),
	})
	if err != nil {
		return fmt.Errorf("failed to create session handler: %w", err)
	}

	observability.EnsureRegistered()

	srv, err := gateway.NewServer(gateway.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadLimit:         cfg.Server.ReadLimit,
		ConnectsPerMinute: cfg.Server.ConnectsPerMinute,
		MaxSessionsPerIP:  cfg.Server.MaxSessionsPerIP,
		Sessions:          handler,
		Logger:            log.With().Str("component", "gateway").Logger(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info().
		Str("addr", srv.Addr().String()).
		Str("base_dir", roots.Base()).
		Strs("allowed_roots", roots.Prefixes()).
		Msg("Serving logs")
	if ready != nil {
		ready(srv.Addr())
	}

	<-ctx.Done()
	return srv.Stop()
}
