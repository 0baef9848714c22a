// Package archive extracts measurement shard files from a compressed
// container into a transient working directory.
package archive

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/alex-miyake/TDP-43/pkg/errors"
)

// shardSuffix identifies entries holding the columnar measurement table
const shardSuffix = ".parquet"

// Extraction holds the result of unpacking an archive. The extracted files
// and the working directory are transient: call Cleanup once the shards have
// been consumed, on every exit path.
type Extraction struct {
	// Dir is the working directory the archive was unpacked into
	Dir string
	// Shards lists extracted measurement shards in name order
	Shards []string
	// extracted lists every file written, shards included
	extracted []string

	logger *zap.Logger
}

// Extract unpacks the archive at archivePath into workDir, creating the
// directory if absent. Re-running overwrites previously extracted files.
// It fails with an archive_corrupt error when the container cannot be opened
// and a no_shards error when extraction yields no measurement shards.
func Extract(archivePath, workDir string, logger *zap.Logger) (*Extraction, error) {
	logger = logger.With(zap.String("component", "archive"))

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeArchiveCorrupt, "failed to create working directory").
			WithDetail("work_dir", workDir)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeArchiveCorrupt, "failed to open archive").
			WithDetail("archive", archivePath)
	}
	defer reader.Close()

	ext := &Extraction{Dir: workDir, logger: logger}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		// Flatten entry paths; shard names are unique within the archive
		name := filepath.Base(entry.Name)
		if name == "." || name == ".." || strings.HasPrefix(name, "/") {
			continue
		}
		dest := filepath.Join(workDir, name)
		if err := extractFile(entry, dest); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeArchiveCorrupt, "failed to extract entry").
				WithDetail("entry", entry.Name)
		}
		ext.extracted = append(ext.extracted, dest)
		if strings.HasSuffix(name, shardSuffix) {
			ext.Shards = append(ext.Shards, dest)
		}
	}
	sort.Strings(ext.Shards)

	if len(ext.Shards) == 0 {
		// Release whatever was written before reporting
		if err := ext.Cleanup(); err != nil {
			logger.Warn("cleanup after empty extraction failed", zap.Error(err))
		}
		return nil, errors.New(errors.ErrorTypeNoShards, "no measurement shards found in archive").
			WithDetail("archive", archivePath)
	}

	logger.Info("extracted archive",
		zap.String("archive", archivePath),
		zap.String("work_dir", workDir),
		zap.Int("files", len(ext.extracted)),
		zap.Int("shards", len(ext.Shards)))

	return ext, nil
}

func extractFile(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest) //nolint:gosec // G304: dest is derived from the validated base name
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil { //nolint:gosec // G110: trusted local archive
		out.Close()
		return err
	}
	return out.Close()
}

// Cleanup removes every extracted file and then the working directory.
// It is safe to call more than once; missing files are not an error.
func (e *Extraction) Cleanup() error {
	var firstErr error
	for _, path := range e.extracted {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := os.Remove(e.Dir); err != nil && !os.IsNotExist(err) {
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil && e.logger != nil {
		e.logger.Info("removed working directory", zap.String("work_dir", e.Dir))
	}
	return firstErr
}
