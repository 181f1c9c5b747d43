package ratelimit

import "time"

// runCleanupLoop runs cleanupFn every interval until stop is closed.
func runCleanupLoop(stop <-chan struct{}, interval time.Duration, cleanupFn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleanupFn()
		case <-stop:
			return
		}
	}
}
