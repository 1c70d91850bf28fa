// internal/pkg/errs/errs.go

// Package errs defines the error kinds shared by the classification pipeline.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTrainingSet  = errors.New("empty training set")
	ErrSingleClass       = errors.New("training set needs at least two distinct labels")
	ErrPipelineNotFitted = errors.New("pipeline not fitted")
	ErrRetrainInProgress = errors.New("retrain already in progress")
)

// ManifestFormatError reports a manifest line without exactly two tab-separated columns.
type ManifestFormatError struct {
	Manifest string
	Line     int
	Columns  int
}

func (e *ManifestFormatError) Error() string {
	return fmt.Sprintf("manifest %s line %d: expected 2 tab-separated columns, got %d", e.Manifest, e.Line, e.Columns)
}

// ImageNotFoundError is returned lazily when an image referenced by a manifest is read.
type ImageNotFoundError struct {
	Path string
	Err  error
}

func (e *ImageNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("image not found: %s", e.Path)
}

func (e *ImageNotFoundError) Unwrap() error { return e.Err }

// InvalidImagePathError reports an image path that is absolute or climbs out
// of the image root.
type InvalidImagePathError struct {
	Path string
}

func (e *InvalidImagePathError) Error() string {
	return fmt.Sprintf("invalid image path %q: must be relative to the image root", e.Path)
}

type ImageDecodeError struct {
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Path, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a tensor whose shape differs from the extractor input.
type DimensionMismatchError struct {
	Got  []int64
	Want []int64
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("tensor shape mismatch: got %v, expected %v", e.Got, e.Want)
}

// UnknownLabelError reports a label string outside the training vocabulary.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("unknown label %q", e.Label)
}

// IsNotFound reports whether err is, or wraps, an ImageNotFoundError.
func IsNotFound(err error) bool {
	var target *ImageNotFoundError
	return errors.As(err, &target)
}

// IsInvalidInput reports whether err was caused by the caller's input rather than the service.
func IsInvalidInput(err error) bool {
	var (
		pathErr     *InvalidImagePathError
		decodeErr   *ImageDecodeError
		dimErr      *DimensionMismatchError
		manifestErr *ManifestFormatError
		labelErr    *UnknownLabelError
	)
	return errors.As(err, &pathErr) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &dimErr) ||
		errors.As(err, &manifestErr) ||
		errors.As(err, &labelErr)
}
