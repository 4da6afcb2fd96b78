package persist

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	return img
}

func TestFileNameDeterministic(t *testing.T) {
	if got := FileName(3, 7); got != "page_003_fig_07.png" {
		t.Errorf("FileName(3,7) = %q", got)
	}
	if got := FileName(12, 0); got != "page_012_fig_00.png" {
		t.Errorf("FileName(12,0) = %q", got)
	}
}

func TestSaveWritesVerifiedPNG(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersister(dir, nil)
	if err != nil {
		t.Fatalf("NewPersister: %v", err)
	}

	path, bytes, err := p.Save(FileName(0, 0), testImage(10, 8))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join(dir, "page_000_fig_00.png") {
		t.Errorf("path = %q", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved file: %v", err)
	}
	if info.Size() == 0 || info.Size() != bytes {
		t.Errorf("size %d, reported %d", info.Size(), bytes)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode saved PNG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 10 || b.Dy() != 8 {
		t.Errorf("decoded size = %v", b)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersister(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	name := filepath.Join("no_such_subdir", "fig.png")
	if _, _, err := p.Save(name, testImage(4, 4)); err == nil {
		t.Fatal("save into missing directory succeeded")
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Errorf("target path exists after failed save: %v", err)
	}
}

func TestSaveRenameFailureCleansTemp(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersister(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	// A directory squatting on the target path makes the rename fail.
	target := filepath.Join(dir, "page_000_fig_01.png")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	if _, _, err := p.Save("page_000_fig_01.png", testImage(4, 4)); err == nil {
		t.Fatal("rename onto a directory succeeded")
	}
	if _, err := os.Stat(target + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file not cleaned up: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Errorf("squatting directory disturbed: %v, %v", info, err)
	}
}

func TestSaveOverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersister(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := p.Save(FileName(1, 1), testImage(4, 4)); err != nil {
		t.Fatal(err)
	}
	path, bytes, err := p.Save(FileName(1, 1), testImage(40, 40))
	if err != nil {
		t.Fatalf("re-save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != bytes {
		t.Errorf("size %d, reported %d", info.Size(), bytes)
	}
}
