package player

// TrackersRunning exposes the number of live position tracker goroutines.
func (e *Engine) TrackersRunning() int {
	return e.tracker.running()
}
