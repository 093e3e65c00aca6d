package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gameshelfapp/gameshelf-server/internal/http/response"
)

// handleDownloadArchive streams the gzipped snapshot database. Served
// as a direct chi route: the archive is a file on disk, not a JSON
// body.
func (s *Server) handleDownloadArchive(w http.ResponseWriter, r *http.Request) {
	path := s.store.Path() + ".gz"

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(w, "no snapshot archive yet", s.logger)
			return
		}
		s.logger.Error("Failed to open snapshot archive", "path", path, "error", err)
		response.InternalError(w, "failed to open snapshot archive", s.logger)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.logger.Error("Failed to stat snapshot archive", "path", path, "error", err)
		response.InternalError(w, "failed to read snapshot archive", s.logger)
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Cache-Control", CacheNoStore)

	// ServeContent handles range requests and If-Modified-Since off the
	// archive's mtime.
	http.ServeContent(w, r, name, info.ModTime(), f)
}
