package logging

import "strings"

// ProgressSampler thins out progress logging to one line per percent bucket,
// plus one whenever the stage label changes. It is not safe for concurrent use.
type ProgressSampler struct {
	step   float64
	stage  string
	bucket int
}

// NewProgressSampler returns a sampler with buckets of step percent; a
// non-positive step means 10.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 10
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// ShouldLog reports whether this update is worth a log line. Negative
// percentages are unknown and only count through stage changes.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	changed := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage, s.bucket = stage, -1
		changed = true
	}
	if percent < 0 {
		return changed
	}
	if bucket := int(min(percent, 100) / s.step); bucket > s.bucket {
		s.bucket = bucket
		return true
	}
	return changed
}

// Reset forgets the last stage and bucket.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.stage, s.bucket = "", -1
	}
}
