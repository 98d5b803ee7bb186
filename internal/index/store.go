package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/jmylchreest/mosaicer/internal/colour"
	"github.com/jmylchreest/mosaicer/internal/compression"
)

// Store persists a colour index.
type Store interface {
	// Save replaces the persisted index with idx.
	Save(ctx context.Context, idx *Index) error
	// Load reads the persisted index back in its saved order.
	Load(ctx context.Context) (*Index, error)
	// Exists reports whether a persisted index is present.
	Exists(ctx context.Context) (bool, error)
	// String describes the store location for logs.
	String() string
}

// FileStore keeps the index as two files: the colours as a dense binary
// float64 matrix (gonum's binary matrix encoding, optionally xz or gzip
// compressed by extension) and the labels as a JSON array.
type FileStore struct {
	ColoursPath string
	LabelsPath  string
	// MaxBytes bounds the decompressed colours file; 0 uses the default.
	MaxBytes int64
}

// NewFileStore creates a FileStore for the given paths.
func NewFileStore(coloursPath, labelsPath string) *FileStore {
	return &FileStore{ColoursPath: coloursPath, LabelsPath: labelsPath}
}

func (s *FileStore) String() string {
	return fmt.Sprintf("files(colours=%s, labels=%s)", s.ColoursPath, s.LabelsPath)
}

// Exists reports whether both files are present.
func (s *FileStore) Exists(_ context.Context) (bool, error) {
	for _, p := range []string{s.ColoursPath, s.LabelsPath} {
		info, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			return false, fmt.Errorf("index path is a directory: %s", p)
		}
	}
	return true, nil
}

// Save writes both files. Each is written to a temporary file in the target
// directory and renamed into place only after both are complete.
func (s *FileStore) Save(ctx context.Context, idx *Index) error {
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	coloursTmp, err := writeTemp(s.ColoursPath, func(w io.Writer) error {
		return writeColours(w, compression.FormatFor(s.ColoursPath), idx)
	})
	if err != nil {
		return fmt.Errorf("failed to write colours file: %w", err)
	}

	labelsTmp, err := writeTemp(s.LabelsPath, func(w io.Writer) error {
		labels := idx.Labels
		if labels == nil {
			labels = []string{}
		}
		return json.NewEncoder(w).Encode(labels)
	})
	if err != nil {
		os.Remove(coloursTmp)
		return fmt.Errorf("failed to write labels file: %w", err)
	}

	if err := os.Rename(coloursTmp, s.ColoursPath); err != nil {
		os.Remove(coloursTmp)
		os.Remove(labelsTmp)
		return fmt.Errorf("failed to move colours file into place: %w", err)
	}
	if err := os.Rename(labelsTmp, s.LabelsPath); err != nil {
		os.Remove(labelsTmp)
		return fmt.Errorf("failed to move labels file into place: %w", err)
	}
	return nil
}

// Load reads both files and checks they describe one consistent index.
func (s *FileStore) Load(ctx context.Context) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	colours, err := s.readColours()
	if err != nil {
		return nil, err
	}

	labelsData, err := os.ReadFile(s.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(labelsData, &labels); err != nil {
		return nil, &CorruptIndexError{Source: s.LabelsPath, Err: err}
	}

	if len(labels) != len(colours) {
		return nil, &CorruptIndexError{
			Source: s.String(),
			Err:    fmt.Errorf("%d labels but %d colours", len(labels), len(colours)),
		}
	}

	idx, err := New(labels, colours)
	if err != nil {
		return nil, &CorruptIndexError{Source: s.String(), Err: err}
	}
	return idx, nil
}

func (s *FileStore) readColours() ([]colour.Colour, error) {
	f, err := os.Open(s.ColoursPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open colours file: %w", err)
	}
	defer f.Close()

	data, err := compression.ReadAll(f, compression.FormatFor(s.ColoursPath), s.MaxBytes)
	if err != nil {
		return nil, &CorruptIndexError{Source: s.ColoursPath, Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}

	var m mat.Dense
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, &CorruptIndexError{Source: s.ColoursPath, Err: err}
	}

	rows, _ := m.Dims()
	colours := make([]colour.Colour, rows)
	for i := range rows {
		colours[i] = colour.Colour(mat.Row(nil, i, &m))
	}
	return colours, nil
}

// writeColours encodes the colours as one rows x dim matrix. An empty index
// is an empty stream.
func writeColours(w io.Writer, format compression.Format, idx *Index) error {
	cw, err := compression.NewWriter(w, format)
	if err != nil {
		return err
	}
	if idx.Len() > 0 {
		dim := idx.Dim()
		flat := make([]float64, 0, idx.Len()*dim)
		for _, c := range idx.Colours {
			flat = append(flat, c...)
		}
		if _, err := mat.NewDense(idx.Len(), dim, flat).MarshalBinaryTo(cw); err != nil {
			cw.Close()
			return err
		}
	}
	return cw.Close()
}

// writeTemp fills a temporary sibling of path and returns its name.
func writeTemp(path string, fill func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
