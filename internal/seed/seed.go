// Package seed derives k-means seeds so that representative colours are
// reproducible regardless of which worker processes an image.
package seed

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"path/filepath"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Mode determines how the k-means seed for an image is generated.
type Mode string

const (
	// ModeContent hashes the pixel data (default, deterministic by content).
	ModeContent Mode = "content"
	// ModeFilepath hashes the absolute file path (deterministic by location).
	ModeFilepath Mode = "filepath"
	// ModeManual uses the configured value for every image.
	ModeManual Mode = "manual"
	// ModeRandom varies between runs.
	ModeRandom Mode = "random"
)

// Config holds configuration for seed generation.
type Config struct {
	Mode  Mode
	Value int64 // only used by ModeManual
}

// DefaultConfig returns the content-hash configuration.
func DefaultConfig() Config {
	return Config{Mode: ModeContent}
}

// Calculate returns the seed for one image. pixels is required for
// ModeContent and path for ModeFilepath.
func Calculate(pixels *mat.Dense, path string, config Config) (int64, error) {
	switch config.Mode {
	case ModeContent, "":
		return ContentSeed(pixels)
	case ModeFilepath:
		return FilepathSeed(path)
	case ModeManual:
		return config.Value, nil
	case ModeRandom:
		return RandomSeed(), nil
	default:
		return 0, fmt.Errorf("unknown seed mode: %s", config.Mode)
	}
}

// ContentSeed hashes the dimensions and every pixel row, quantised to bytes.
func ContentSeed(pixels *mat.Dense) (int64, error) {
	if pixels == nil || pixels.IsEmpty() {
		return 0, fmt.Errorf("pixels are required for content seed mode")
	}
	rows, cols := pixels.Dims()

	hasher := sha256.New()
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(rows)) // #nosec G115 -- matrix dimensions are non-negative
	binary.LittleEndian.PutUint32(header[4:8], uint32(cols)) // #nosec G115 -- matrix dimensions are non-negative
	hasher.Write(header)

	row := make([]byte, cols)
	for i := range rows {
		for j, v := range pixels.RawRowView(i) {
			row[j] = byte(v)
		}
		hasher.Write(row)
	}

	return toSeed(hasher.Sum(nil)), nil
}

// FilepathSeed hashes the absolute form of path.
func FilepathSeed(path string) (int64, error) {
	if path == "" {
		return 0, fmt.Errorf("image path is required for filepath seed mode")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	hash := sha256.Sum256([]byte(absPath))
	return toSeed(hash[:]), nil
}

// RandomSeed generates a non-deterministic seed.
func RandomSeed() int64 {
	// #nosec G404 -- seed variation is the point of this mode
	return time.Now().UnixNano() + int64(rand.Intn(1000000))
}

func toSeed(hash []byte) int64 {
	return int64(binary.LittleEndian.Uint64(hash[:8])) // #nosec G115 -- hash bits reinterpreted as a seed
}

// ValidModes returns the accepted seed modes.
func ValidModes() []Mode {
	return []Mode{ModeContent, ModeFilepath, ModeManual, ModeRandom}
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	mode := Mode(s)
	if slices.Contains(ValidModes(), mode) {
		return mode, nil
	}
	return "", fmt.Errorf("invalid seed mode: %s (valid: content, filepath, manual, random)", s)
}
