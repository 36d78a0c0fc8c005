// Package persistence writes and reads the label artifacts: the label volume
// as a NumPy array (optionally snappy-framed) and the class registry as a
// small JSON metadata document.
package persistence

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"go.uber.org/zap"

	"slicelabeler/internal/logging"
	"slicelabeler/internal/models"
	"slicelabeler/pkg/config"
	"slicelabeler/pkg/registry"
)

// SnappyExt is appended to the labels file name when snappy compression is on
const SnappyExt = ".sz"

// FileStore saves label artifacts into a directory
type FileStore struct {
	// Dir is the output directory, created on first save
	Dir string

	// LabelsFile is the label volume file name
	LabelsFile string

	// MetadataFile is the registry metadata file name
	MetadataFile string

	// Compression is config.CompressionNone or config.CompressionSnappy
	Compression string
}

// NewFileStore builds a store from the output section of cfg
func NewFileStore(cfg *config.Config) *FileStore {
	return &FileStore{
		Dir:          cfg.Output.Dir,
		LabelsFile:   cfg.Output.LabelsFile,
		MetadataFile: cfg.Output.MetadataFile,
		Compression:  cfg.Output.Compression,
	}
}

// LabelsPath returns where Save writes the label volume
func (s *FileStore) LabelsPath() string {
	p := filepath.Join(s.Dir, s.LabelsFile)
	if s.Compression == config.CompressionSnappy && !strings.HasSuffix(p, SnappyExt) {
		p += SnappyExt
	}
	return p
}

// MetadataPath returns where Save writes the registry metadata
func (s *FileStore) MetadataPath() string {
	return filepath.Join(s.Dir, s.MetadataFile)
}

// Save writes the label volume and the registry metadata. Each file is
// written to a temporary name and renamed into place, so a failed save
// leaves any previous artifact intact. labels and reg are only read.
func (s *FileStore) Save(labels *models.LabelVolume, reg *registry.Registry) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	snappyOn := s.Compression == config.CompressionSnappy
	err := writeAtomic(s.LabelsPath(), func(w io.Writer) error {
		if !snappyOn {
			return WriteNPY(w, labels)
		}
		sw := snappy.NewBufferedWriter(w)
		if err := WriteNPY(sw, labels); err != nil {
			return err
		}
		return sw.Close()
	})
	if err != nil {
		return fmt.Errorf("writing labels: %w", err)
	}

	err = writeAtomic(s.MetadataPath(), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reg.Metadata())
	})
	if err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	logging.L().Info("label artifacts written",
		zap.String("labels", s.LabelsPath()),
		zap.String("metadata", s.MetadataPath()),
		zap.Bool("snappy", snappyOn))
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadLabels reads a label volume written by Save. Files ending in SnappyExt
// are decompressed first.
func LoadLabels(path string) (*models.LabelVolume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, SnappyExt) {
		r = snappy.NewReader(f)
	}
	labels, err := ReadNPY(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return labels, nil
}

// LoadMetadata reads a registry written by Save
func LoadMetadata(path string) (*registry.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var md registry.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return registry.FromMetadata(md)
}
