package logging

import "sync"

// ProgressSampler suppresses repetitive progress logs, emitting only when the
// percentage crosses into a new bucket. It is safe for concurrent use.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress value should be logged. 100 always
// maps to the final bucket so completion is never suppressed.
func (s *ProgressSampler) ShouldLog(percent float64) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		return false
	}
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100/s.bucketSize) + 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}
