package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-playback/internal/audio"
	"github.com/edumarques81/stellar-playback/internal/domain/track"
)

// Get returns the cached probe for key. Rows recorded for another size or
// modification time are treated as misses.
func (d *DB) Get(key track.ProbeKey) (audio.Info, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return audio.Info{}, false
	}

	var (
		size, modTime int64
		info          audio.Info
	)
	err := d.db.QueryRow(`
		SELECT size, mod_time, samples, sample_rate, channels, frames, duration_ms
		FROM probes WHERE path = ?
	`, key.Path).Scan(&size, &modTime, &info.Samples, &info.SampleRate, &info.Channels, &info.Frames, &info.DurationMs)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warn().Err(err).Str("path", key.Path).Msg("Probe cache lookup failed")
		}
		return audio.Info{}, false
	}
	if size != key.Size || modTime != key.ModTime {
		return audio.Info{}, false
	}
	return info, true
}

// Put stores the probe for key, replacing any previous row for the path.
func (d *DB) Put(key track.ProbeKey, info audio.Info) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}

	now := time.Now().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO probes (path, size, mod_time, samples, sample_rate, channels, frames, duration_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			samples = excluded.samples,
			sample_rate = excluded.sample_rate,
			channels = excluded.channels,
			frames = excluded.frames,
			duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at
	`, key.Path, key.Size, key.ModTime, info.Samples, info.SampleRate, info.Channels, info.Frames, info.DurationMs, now)
	if err != nil {
		return fmt.Errorf("failed to store probe: %w", err)
	}
	return d.setMeta("last_updated", now)
}

// Prune deletes rows whose files no longer exist and returns how many were removed.
func (d *DB) Prune() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return 0, ErrNotOpen
	}

	rows, err := d.db.Query("SELECT path FROM probes")
	if err != nil {
		return 0, fmt.Errorf("failed to list probes: %w", err)
	}
	var missing []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, path := range missing {
		if _, err := d.db.Exec("DELETE FROM probes WHERE path = ?", path); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", path, err)
		}
	}
	if len(missing) > 0 {
		log.Info().Int("removed", len(missing)).Msg("Pruned stale probes")
	}
	return len(missing), nil
}
