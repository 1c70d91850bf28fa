// internal/dataset/manifest.go
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

// LabeledImage is one manifest entry. Path is relative to the image store root
// and identifies the image; Label is empty until predicted.
type LabeledImage struct {
	Path  string
	Label string
}

// Manifest is a tab-separated list of (relative path, label) pairs with no header.
// Iterating a Manifest never reads the images it references.
type Manifest struct {
	name string
	open func() (io.ReadCloser, error)
}

// Open returns a Manifest backed by the file at path. The file is opened on each
// iteration, so a Manifest can be scanned any number of times.
func Open(path string) *Manifest {
	return &Manifest{
		name: path,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// FromBytes returns an in-memory Manifest.
func FromBytes(name string, data []byte) *Manifest {
	return &Manifest{
		name: name,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Name returns the manifest path or label used in errors.
func (m *Manifest) Name() string {
	return m.name
}

// All yields manifest entries in file order. A malformed line yields a
// *errs.ManifestFormatError and ends the sequence.
func (m *Manifest) All() iter.Seq2[LabeledImage, error] {
	return func(yield func(LabeledImage, error) bool) {
		rc, err := m.open()
		if err != nil {
			yield(LabeledImage{}, fmt.Errorf("failed to open manifest %s: %w", m.name, err))
			return
		}
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimRight(scanner.Text(), "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}

			img, err := parseLine(m.name, lineNo, line)
			if err != nil {
				yield(LabeledImage{}, err)
				return
			}
			if !yield(img, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(LabeledImage{}, fmt.Errorf("failed to read manifest %s: %w", m.name, err))
		}
	}
}

// Load collects every entry of the manifest.
func (m *Manifest) Load(ctx context.Context) ([]LabeledImage, error) {
	var images []LabeledImage
	for img, err := range m.All() {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func parseLine(manifest string, lineNo int, line string) (LabeledImage, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != 2 {
		return LabeledImage{}, &errs.ManifestFormatError{Manifest: manifest, Line: lineNo, Columns: len(cols)}
	}

	path := strings.TrimSpace(cols[0])
	if path == "" {
		return LabeledImage{}, &errs.ManifestFormatError{Manifest: manifest, Line: lineNo, Columns: 1}
	}
	return LabeledImage{Path: path, Label: strings.TrimSpace(cols[1])}, nil
}
