package paper

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/koios/paper/internal/canvas"
	"go.uber.org/zap"
)

// MaxWalkDepth bounds how many directory levels the random walk descends
const MaxWalkDepth = 32

// imageExtensions are matched case-sensitively
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// RandomDirectory picks a random image below a directory on every render
// and stretches it like Image does.
type RandomDirectory struct {
	Root   string
	scaler *scaledDrawer
	intn   func(n int) int
	logger *zap.Logger
}

// NewRandomDirectory builds the style. kit.Intn defaults to math/rand.
func NewRandomDirectory(root string, kit Toolkit) *RandomDirectory {
	kit = kit.withDefaults()
	intn := kit.Intn
	if intn == nil {
		intn = rand.Intn
	}
	return &RandomDirectory{
		Root:   root,
		scaler: newScaledDrawer(kit),
		intn:   intn,
		logger: kit.Logger,
	}
}

func (s *RandomDirectory) Render(ctx context.Context, c *canvas.Canvas) error {
	path, err := s.Pick()
	if err != nil {
		return err
	}
	s.logger.Debug("Picked random image", zap.String("root", s.Root), zap.String("path", path))
	return s.scaler.draw(ctx, c, path)
}

func (s *RandomDirectory) String() string { return fmt.Sprintf("dir(%s)", s.Root) }

// Pick walks down from Root choosing uniformly among the images and
// sub-directories of each level until it lands on an image.
func (s *RandomDirectory) Pick() (string, error) {
	info, err := os.Stat(s.Root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%q: %w", s.Root, ErrNotDirectory)
	}

	dir := s.Root
	for depth := 0; depth < MaxWalkDepth; depth++ {
		candidates, err := walkCandidates(dir)
		if err != nil {
			return "", err
		}
		if len(candidates) == 0 {
			return "", fmt.Errorf("%q: %w", dir, ErrEmptyDirectory)
		}

		choice := candidates[s.intn(len(candidates))]
		if !choice.dir {
			return choice.path, nil
		}
		dir = choice.path
	}
	return "", fmt.Errorf("%q: %w", s.Root, ErrWalkTooDeep)
}

type candidate struct {
	path string
	dir  bool
}

func walkCandidates(dir string) ([]candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var candidates []candidate
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		mode := entry.Type()
		if mode&os.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				continue // dangling link
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			candidates = append(candidates, candidate{path: path, dir: true})
		case mode.IsRegular() && imageExtensions[filepath.Ext(entry.Name())]:
			candidates = append(candidates, candidate{path: path})
		}
	}
	return candidates, nil
}
