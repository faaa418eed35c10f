package deck

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/models"
)

// DefaultDebounce collapses the bursts of events editors emit on save
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the deck at path whenever it changes and passes each
// successful load to onLoad. A deck that fails to load is logged and the
// previous one stays in use. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, opts Options, debounce time.Duration, onLoad func(*models.Presentation), logger zerolog.Logger) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve deck path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := logger.With().Str("component", "deck-watch").Str("path", absPath).Logger()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	// watch the directory so editors that replace the file are still seen
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}
	target := filepath.Base(absPath)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")

		case <-fire:
			fire = nil
			pres, err := LoadFile(absPath, opts)
			if err != nil {
				log.Warn().Err(err).Msg("keeping previous deck")
				continue
			}
			log.Info().Int("slides", pres.Len()).Msg("deck changed")
			onLoad(pres)
		}
	}
}
