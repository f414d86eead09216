package compliance

import (
	"context"
	"fmt"

	"github.com/goodtune/frms/internal/storage"
)

// Watch recomputes tracked reports as the store reports changes. It blocks
// until ctx is done or the change stream ends.
func (s *Service) Watch(ctx context.Context, watcher storage.Watcher) error {
	changes, err := watcher.Watch(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to watch record changes: %w", err)
	}

	s.logger.Info().Msg("Watching record changes")

	for change := range changes {
		s.logger.Debug().
			Str("pilot_id", change.PilotID).
			Str("record_id", change.RecordID).
			Str("op", string(change.Op)).
			Int64("revision", change.Revision).
			Msg("Record change received")

		if err := s.Refresh(ctx, change.PilotID, "change"); err != nil {
			s.logger.Error().Err(err).Str("pilot_id", change.PilotID).Msg("Failed to recompute report")
		}
	}

	return ctx.Err()
}
