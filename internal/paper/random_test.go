package paper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koios/paper/internal/canvas"
	"github.com/koios/paper/pkg/models"
)

func TestRandomDirectory_SkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), patternImage(1, 1))
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("notes"), 0644)

	style := NewRandomDirectory(dir, Toolkit{})
	for i := 0; i < 50; i++ {
		path, err := style.Pick()
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		if filepath.Base(path) != "a.png" {
			t.Fatalf("Pick() = %s, want a.png", path)
		}
	}

	c := canvas.New(5, 3)
	if err := style.Render(context.Background(), c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := c.At(4, 2); got != pixelOf(0, 0) {
		t.Errorf("At(4,2) = %#x", got)
	}
}

func TestRandomDirectory_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	style, _ := NewStyle(models.RandomFromDirectory(dir), Toolkit{})

	c := canvas.New(4, 4)
	c.Fill(0xFF010203)

	err := style.Render(context.Background(), c)
	if !errors.Is(err, ErrEmptyDirectory) {
		t.Fatalf("expected ErrEmptyDirectory, got %v", err)
	}
	if IsFatal(err) {
		t.Error("empty directory should not be fatal")
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if c.At(x, y) != 0xFF010203 {
				t.Fatal("canvas modified for empty directory")
			}
		}
	}
}

func TestRandomDirectory_ExtensionsAreCaseSensitive(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "upper.PNG"), patternImage(1, 1))
	writePNG(t, filepath.Join(dir, "photo.Jpg"), patternImage(1, 1))

	_, err := NewRandomDirectory(dir, Toolkit{}).Pick()
	if !errors.Is(err, ErrEmptyDirectory) {
		t.Errorf("expected ErrEmptyDirectory, got %v", err)
	}
}

func TestRandomDirectory_NotADirectoryIsFatal(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.png")
	writePNG(t, file, patternImage(1, 1))

	for _, root := range []string{file, filepath.Join(dir, "missing")} {
		_, err := NewRandomDirectory(root, Toolkit{}).Pick()
		if !errors.Is(err, ErrNotDirectory) {
			t.Errorf("%s: expected ErrNotDirectory, got %v", root, err)
		}
		if !IsFatal(err) {
			t.Errorf("%s: expected fatal error", root)
		}
	}
}

func TestRandomDirectory_DescendsIntoSubdirectories(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "nature", "forest", "pine.jpg")
	if err := os.MkdirAll(filepath.Dir(want), 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(want, []byte("jpeg"), 0644)
	os.WriteFile(filepath.Join(dir, "README"), []byte("skip"), 0644)

	got, err := NewRandomDirectory(dir, Toolkit{}).Pick()
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got != want {
		t.Errorf("Pick() = %s, want %s", got, want)
	}
}

func TestRandomDirectory_EmptySubdirectory(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "empty"), 0755)

	_, err := NewRandomDirectory(dir, Toolkit{}).Pick()
	if !errors.Is(err, ErrEmptyDirectory) {
		t.Fatalf("expected ErrEmptyDirectory, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("error should name the empty directory: %v", err)
	}
}

func TestRandomDirectory_UsesInjectedChoice(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpeg", "c.jpg"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
	}

	// os.ReadDir sorts by name
	for i, name := range []string{"a.png", "b.jpeg", "c.jpg"} {
		choice := i
		style := NewRandomDirectory(dir, Toolkit{Intn: func(n int) int {
			if n != 3 {
				t.Fatalf("Intn(%d), want 3 candidates", n)
			}
			return choice
		}})
		got, err := style.Pick()
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		if filepath.Base(got) != name {
			t.Errorf("choice %d = %s, want %s", i, got, name)
		}
	}
}

func TestRandomDirectory_DepthBound(t *testing.T) {
	dir := t.TempDir()
	deep := dir
	for i := 0; i <= MaxWalkDepth; i++ {
		deep = filepath.Join(deep, "d")
	}
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(deep, "x.png"), []byte("x"), 0644)

	_, err := NewRandomDirectory(dir, Toolkit{}).Pick()
	if !errors.Is(err, ErrWalkTooDeep) {
		t.Fatalf("expected ErrWalkTooDeep, got %v", err)
	}
	if IsFatal(err) {
		t.Error("depth bound should not be fatal")
	}
}

func TestRandomDirectory_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.png")
	writePNG(t, target, patternImage(1, 1))
	if err := os.Symlink(target, filepath.Join(dir, "link.png")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(dir, "dangling.png"))

	got, err := NewRandomDirectory(dir, Toolkit{}).Pick()
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if filepath.Base(got) != "link.png" {
		t.Errorf("Pick() = %s, want link.png", got)
	}
}
