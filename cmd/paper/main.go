package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/koios/paper/internal/app"
	"github.com/koios/paper/internal/config"
	"github.com/koios/paper/pkg/models"
)

// runFunc draws the final wallpaper configuration
type runFunc func(ctx context.Context, wall *models.WallpaperConfig) error

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	run := func(ctx context.Context, wall *models.WallpaperConfig) error {
		a, err := app.New(logger, cfg, wall)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Run(ctx)
	}

	cmd := newRootCommand(cfg, logger, run)
	cmd.SetArgs(normalizeArgs(os.Args[1:], logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Error("paper failed", zap.Error(err))
		logger.Sync()
		stop()
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config, logger *zap.Logger, run runFunc) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "paper [flags]",
		Short: "paper - static wallpaper for wlroots compositors",
		Long: `paper draws a solid color, an image, a tiled image or a random image from a
directory on the background layer of every Wayland output, optionally framed
by a border. Style flags share one slot: the last one on the command line wins.`,
		Example: `  paper -c '#FF112233'
  paper -i ~/Pictures/wall.png -o DP-1
  paper -d ~/Pictures/walls -b 10 '#FF000000'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			args = opts.resolveBorder(args, logger)
			if len(args) > 0 {
				logger.Warn("Ignoring extra arguments", zap.Strings("args", args))
			}
			if opts.flushCache {
				cfg.Cache.FlushOnStart = true
			}

			wall := opts.wallpaper(loadProfile(opts.profile, cfg.Render.Profile, logger))
			logger.Debug("Wallpaper configured",
				zap.Stringer("style", wall.Style),
				zap.Bool("border", wall.Border != nil),
				zap.String("output", wall.OutputFilter))

			return run(cmd.Context(), wall)
		},
	}

	registerFlags(cmd.Flags(), opts, logger)
	return cmd
}

// loadProfile returns the profile's configuration, or nil when there is none.
// An explicitly requested profile that is missing is reported; the default one may be absent.
func loadProfile(explicit, fallback string, logger *zap.Logger) *models.WallpaperConfig {
	path := explicit
	if path == "" {
		path = fallback
	}
	if path == "" {
		return nil
	}

	profile, err := models.LoadProfile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && explicit == "" {
			return nil
		}
		logger.Warn("Ignoring profile", zap.String("path", path), zap.Error(err))
		return nil
	}

	wall, err := profile.WallpaperConfig()
	if err != nil {
		logger.Warn("Ignoring profile", zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Info("Loaded profile", zap.String("path", path))
	return wall
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid PAPER_LOG_LEVEL: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = cfg.Format
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zc.Build()
}
