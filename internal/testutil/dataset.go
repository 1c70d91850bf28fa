// internal/testutil/dataset.go

// Package testutil writes small labeled image datasets for tests.
package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

// Palette maps each synthetic label to its dominant colour.
var Palette = map[string]color.RGBA{
	"tomato":   {R: 230, G: 40, B: 30, A: 255},
	"broccoli": {R: 30, G: 200, B: 40, A: 255},
	"ocean":    {R: 20, G: 60, B: 220, A: 255},
}

// Labels lists Palette keys in manifest order.
var Labels = []string{"tomato", "broccoli", "ocean"}

// Options is a tiny preprocessing configuration for the mock extractor.
func Options() preprocess.Options {
	return preprocess.Options{Width: 8, Height: 8, ChannelsLast: true, Mean: 117, Scale: 1}
}

// Dataset is a directory of PNGs with train and test manifests.
type Dataset struct {
	Dir           string
	TrainManifest string
	TestManifest  string
}

// Image returns the relative path of the i-th training image of label.
func (d *Dataset) Image(label string, i int) string {
	return fmt.Sprintf("%s/%d.png", label, i)
}

// WriteDataset writes perClass training and one test image per label.
func WriteDataset(t testing.TB, perClass int) *Dataset {
	t.Helper()
	dir := t.TempDir()
	d := &Dataset{
		Dir:           dir,
		TrainManifest: filepath.Join(dir, "tags.tsv"),
		TestManifest:  filepath.Join(dir, "test-tags.tsv"),
	}

	var train, test strings.Builder
	for _, label := range Labels {
		for i := 0; i < perClass; i++ {
			rel := d.Image(label, i)
			WritePNG(t, filepath.Join(dir, rel), Palette[label], i)
			fmt.Fprintf(&train, "%s\t%s\n", rel, label)
		}
		rel := fmt.Sprintf("test/%s.png", label)
		WritePNG(t, filepath.Join(dir, rel), Palette[label], 7)
		fmt.Fprintf(&test, "%s\t%s\n", rel, label)
	}
	writeFile(t, d.TrainManifest, train.String())
	writeFile(t, d.TestManifest, test.String())
	return d
}

// WritePNG writes a 20x16 image of c with a small seed-dependent gradient.
func WritePNG(t testing.TB, path string, c color.RGBA, seed int) {
	t.Helper()
	img := Solid(c, 20, 16, seed)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// Solid returns a w x h image of c perturbed by a gradient.
func Solid(c color.RGBA, w, h, seed int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := uint8((x + y + seed) % 9)
			img.SetRGBA(x, y, color.RGBA{R: sat(c.R, d), G: sat(c.G, d), B: sat(c.B, d), A: 255})
		}
	}
	return img
}

// PNGBytes encodes img for upload tests.
func PNGBytes(t testing.TB, img image.Image) []byte {
	t.Helper()
	var b strings.Builder
	if err := png.Encode(&b, img); err != nil {
		t.Fatal(err)
	}
	return []byte(b.String())
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sat(v, d uint8) uint8 {
	if int(v)+int(d) > 255 {
		return 255
	}
	return v + d
}
