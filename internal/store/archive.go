package store

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
)

// WriteArchive writes a gzipped copy of the database next to it
// (<path>.gz) and returns the archive path. The copy comes from VACUUM
// INTO, so it is a consistent single-file snapshot even under WAL.
func (s *Store) WriteArchive(ctx context.Context) (string, error) {
	vacuumPath := s.path + ".vacuum"
	if err := os.Remove(vacuumPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("clear vacuum target: %w", err)
	}
	defer os.Remove(vacuumPath)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, vacuumPath); err != nil {
		return "", fmt.Errorf("vacuum snapshot: %w", err)
	}

	archivePath := s.path + ".gz"
	if err := gzipFile(vacuumPath, archivePath); err != nil {
		return "", err
	}

	if info, err := os.Stat(archivePath); err == nil {
		s.logger.Info("snapshot archive written", "path", archivePath, "bytes", info.Size())
	}
	return archivePath, nil
}

// gzipFile compresses src into dst, replacing dst atomically.
func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open snapshot copy: %w", err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close archive: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}
