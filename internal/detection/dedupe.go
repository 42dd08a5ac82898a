package detection

import "sort"

// DefaultIOUThreshold is the overlap ratio above which two detections
// are considered duplicates of the same face.
const DefaultIOUThreshold = 0.4

// Dedupe merges overlapping raw detections into a canonical face set.
//
// Detections are ranked by descending confidence, ties broken by input
// order. Each surviving detection suppresses every lower-ranked
// detection whose IoU with it exceeds iouThreshold. The result keeps
// the ranked order.
//
// Dedupe is deterministic and idempotent: running it on its own output
// returns the same set. O(n^2), fine for the handful of faces a frame
// can contain.
func Dedupe(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) <= 1 {
		return dets
	}

	ranked := make([]Detection, len(dets))
	copy(ranked, dets)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	kept := make([]Detection, 0, len(ranked))
	suppressed := make([]bool, len(ranked))
	for i := range ranked {
		if suppressed[i] {
			continue
		}
		kept = append(kept, ranked[i])
		for j := i + 1; j < len(ranked); j++ {
			if suppressed[j] {
				continue
			}
			if IoU(&ranked[i], &ranked[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
