package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.step != tt.wantSize {
				t.Errorf("step = %v, want %v", s.step, tt.wantSize)
			}
			if s.bucket != -1 {
				t.Errorf("bucket = %d, want -1", s.bucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "encoding") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(0, "encoding") {
		t.Fatal("first event should log")
	}
	if s.ShouldLog(5, "encoding") {
		t.Fatal("same bucket should not log")
	}
	if !s.ShouldLog(12, "encoding") {
		t.Fatal("new bucket should log")
	}
	if !s.ShouldLog(150, "encoding") {
		t.Fatal("completion should log")
	}
	if s.ShouldLog(100, "encoding") {
		t.Fatal("clamped completion should only log once")
	}
	if !s.ShouldLog(-1, "muxing") {
		t.Fatal("stage change should log even with unknown percent")
	}
	if s.ShouldLog(-1, "muxing") {
		t.Fatal("unknown percent on same stage should not log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "encoding")
	s.Reset()
	if s.stage != "" || s.bucket != -1 {
		t.Fatalf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog(50, "encoding") {
		t.Fatal("expected log after reset")
	}
}
