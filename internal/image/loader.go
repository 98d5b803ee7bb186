// Package image loads library images and turns them into pixel matrices.
package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format
)

// Loader decodes an image file.
type Loader interface {
	// Load loads an image from the given path.
	Load(path string) (image.Image, error)
}

// DecodeError reports an image that could not be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err carries a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// FileLoader loads images from the local filesystem, applying EXIF
// orientation. Supported formats: JPEG, PNG, GIF, WebP.
type FileLoader struct{}

// NewFileLoader creates a new FileLoader instance.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load loads an image from a file path. Every failure is a *DecodeError.
func (l *FileLoader) Load(path string) (image.Image, error) {
	if path == "" {
		return nil, &DecodeError{Path: path, Err: errors.New("image path cannot be empty")}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &DecodeError{Path: path, Err: errors.New("path is a directory, not a file")}
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}
