package service

import "time"

// progressHorizon is the run time at which a task reports 100% regardless
// of how much work is left.
const progressHorizon = 10 * time.Minute

// percentDone is the larger of the completed-work ratio and the elapsed
// ratio over progressHorizon, as a percentage capped at 100.
func percentDone(done, total int, elapsed time.Duration) int {
	var work float64
	if total > 0 {
		work = float64(done) / float64(total)
	}
	clock := float64(elapsed) / float64(progressHorizon)
	pct := int(max(work, clock) * 100)
	return min(max(pct, 0), 100)
}
