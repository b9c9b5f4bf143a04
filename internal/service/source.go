package service

import (
	"fmt"
	"os"

	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// SourceService reports on the overlay feature files under the data directory.
type SourceService struct {
	files *overlay.FileSource
}

// NewSourceService creates a new source service.
func NewSourceService(files *overlay.FileSource) *SourceService {
	return &SourceService{files: files}
}

// List returns one entry per overlay, whether or not its file exists.
func (s *SourceService) List() ([]SourceFile, error) {
	var files []SourceFile
	for _, name := range overlay.Names() {
		path := s.files.Path(name)
		sf := SourceFile{Overlay: string(name), Path: path}

		info, err := os.Stat(path)
		switch {
		case err == nil:
			sf.Exists = true
			sf.Size = formatSize(info.Size())
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		files = append(files, sf)
	}
	return files, nil
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
