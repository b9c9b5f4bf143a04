package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// Archiver stores the records of a loaded overlay.
type Archiver interface {
	Store(ctx context.Context, name overlay.Name, records []overlay.Record) error
}

// ArchivingSource copies every successful fetch into an Archiver. Archive
// failures are logged and never fail the fetch.
type ArchivingSource struct {
	next    overlay.Source
	archive Archiver
	log     zerolog.Logger
}

// NewArchivingSource wraps next.
func NewArchivingSource(next overlay.Source, archive Archiver, log zerolog.Logger) *ArchivingSource {
	return &ArchivingSource{next: next, archive: archive, log: log}
}

func (s *ArchivingSource) Fetch(ctx context.Context, name overlay.Name) ([]overlay.Record, error) {
	records, err := s.next.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.archive.Store(ctx, name, records); err != nil {
		s.log.Warn().Err(err).Str("overlay", string(name)).Msg("archiving overlay features failed")
	}
	return records, nil
}
