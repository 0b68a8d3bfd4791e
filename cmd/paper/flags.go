package main

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/koios/paper/pkg/models"
)

// options collects the command line. Style flags share one slot and are
// applied in argv order, so the last one wins.
type options struct {
	style      models.StyleSpec
	styleSet   bool
	border     *models.BorderSpec
	pendingGap *uint32 // -b given without an inline color
	output     string
	profile    string
	flushCache bool
}

// styleFlag is a pflag.Value writing one style kind into the shared slot
type styleFlag struct {
	opts   *options
	kind   models.StyleKind
	logger *zap.Logger
}

var _ pflag.Value = (*styleFlag)(nil)

func (f *styleFlag) String() string { return "" }

func (f *styleFlag) Type() string {
	if f.kind == models.StyleColor {
		return "color"
	}
	return "path"
}

// Set never fails: a malformed color is reported and leaves the prior style in place
func (f *styleFlag) Set(value string) error {
	var spec models.StyleSpec
	switch f.kind {
	case models.StyleColor:
		color, err := models.ParseColor(value)
		if err != nil {
			f.logger.Warn("Ignoring invalid color", zap.String("value", value), zap.Error(err))
			return nil
		}
		spec = models.SolidColor(color)
	case models.StyleImage:
		spec = models.Image(value)
	case models.StyleTiled:
		spec = models.TiledImage(value)
	case models.StyleRandom:
		spec = models.RandomFromDirectory(value)
	}
	f.opts.style = spec
	f.opts.styleSet = true
	return nil
}

// borderFlag accepts "gap:color" or a bare gap whose color is the next
// positional argument
type borderFlag struct {
	opts   *options
	logger *zap.Logger
}

var _ pflag.Value = (*borderFlag)(nil)

func (f *borderFlag) String() string { return "" }

func (f *borderFlag) Type() string { return "gap" }

func (f *borderFlag) Set(value string) error {
	gapText, colorText, inline := strings.Cut(value, ":")

	gap, err := strconv.ParseUint(gapText, 10, 32)
	if err != nil {
		f.logger.Warn("Ignoring invalid border gap", zap.String("value", gapText))
		return nil
	}
	g := uint32(gap)

	if !inline {
		f.opts.pendingGap = &g
		return nil
	}
	f.opts.pendingGap = nil

	color, err := models.ParseColor(colorText)
	if err != nil {
		f.logger.Warn("Ignoring border with invalid color", zap.String("value", colorText), zap.Error(err))
		return nil
	}
	f.opts.border = &models.BorderSpec{Gap: g, Color: color}
	return nil
}

// resolveBorder completes a bare "-b <gap>" with the color given as the
// first positional argument and returns the arguments left over
func (o *options) resolveBorder(args []string, logger *zap.Logger) []string {
	if o.pendingGap == nil {
		return args
	}
	gap := *o.pendingGap
	o.pendingGap = nil

	if len(args) == 0 {
		logger.Warn("Ignoring border without color", zap.Uint32("gap", gap))
		return args
	}

	color, err := models.ParseColor(args[0])
	if err != nil {
		logger.Warn("Ignoring border with invalid color", zap.String("value", args[0]), zap.Error(err))
		return args[1:]
	}
	o.border = &models.BorderSpec{Gap: gap, Color: color}
	return args[1:]
}

func registerFlags(fs *pflag.FlagSet, opts *options, logger *zap.Logger) {
	fs.VarP(&styleFlag{opts: opts, kind: models.StyleColor, logger: logger}, "color", "c", "fill every output with an #AARRGGBB color")
	fs.VarP(&styleFlag{opts: opts, kind: models.StyleImage, logger: logger}, "image", "i", "stretch an image over every output")
	fs.VarP(&styleFlag{opts: opts, kind: models.StyleTiled, logger: logger}, "tiled", "t", "tile an image at its native size")
	fs.VarP(&styleFlag{opts: opts, kind: models.StyleRandom, logger: logger}, "dir", "d", "pick a random image below a directory")
	fs.VarP(&borderFlag{opts: opts, logger: logger}, "border", "b", "draw a border: <gap> <#AARRGGBB> or <gap>:<#AARRGGBB>")
	fs.StringVarP(&opts.output, "output", "o", "", "only draw on outputs whose name, description, make or model contains this")
	fs.StringVarP(&opts.profile, "profile", "p", "", "YAML profile with default settings")
	fs.BoolVar(&opts.flushCache, "flush-cache", false, "drop every cached frame before rendering")
}

// valueFlags are the flags that consume an argument
var valueFlags = map[string]bool{
	"-c": true, "--color": true,
	"-i": true, "--image": true,
	"-t": true, "--tiled": true,
	"-d": true, "--dir": true,
	"-b": true, "--border": true,
	"-o": true, "--output": true,
	"-p": true, "--profile": true,
}

// normalizeArgs prepares argv for cobra
func normalizeArgs(args []string, logger *zap.Logger) []string {
	return pairBorders(dropDangling(args, logger))
}

// dropDangling removes a trailing flag that is missing its argument
func dropDangling(args []string, logger *zap.Logger) []string {
	if n := len(args); n > 0 && valueFlags[args[n-1]] {
		logger.Warn("Ignoring flag without value", zap.String("flag", args[n-1]))
		return args[:n-1]
	}
	return args
}

// pairBorders rewrites "-b <gap> <color>" into "-b <gap>:<color>" so every
// border flag carries its own color and the last one wins
func pairBorders(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		out = append(out, arg)
		if arg != "-b" && arg != "--border" || i+1 >= len(args) {
			continue
		}

		gap := args[i+1]
		i++
		if !strings.Contains(gap, ":") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			gap += ":" + args[i+1]
			i++
		}
		out = append(out, gap)
	}
	return out
}

// wallpaper merges the profile (if any) with the command line
func (o *options) wallpaper(base *models.WallpaperConfig) *models.WallpaperConfig {
	wall := base.Clone()
	if wall == nil {
		wall = &models.WallpaperConfig{}
	}
	if o.styleSet {
		wall.Style = o.style
	}
	if o.border != nil {
		border := *o.border
		wall.Border = &border
	}
	if o.output != "" {
		wall.OutputFilter = o.output
	}
	return wall
}
