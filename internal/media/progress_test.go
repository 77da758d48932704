package media

import (
	"errors"
	"iter"
	"testing"
)

func counting(n int, failAt int) iter.Seq2[Progress, error] {
	return func(yield func(Progress, error) bool) {
		for i := range n {
			if i == failAt {
				yield(Progress{}, errors.New("encoder crashed"))
				return
			}
			if !yield(Progress{Percent: float64(i * 10)}, nil) {
				return
			}
		}
	}
}

func TestDrainConsumesEverything(t *testing.T) {
	var seen []float64
	if err := Drain(counting(4, -1), func(p Progress) { seen = append(seen, p.Percent) }); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(seen) != 4 || seen[3] != 30 {
		t.Fatalf("unexpected events %v", seen)
	}
}

func TestDrainStopsAtFirstError(t *testing.T) {
	count := 0
	err := Drain(counting(5, 2), func(Progress) { count++ })
	if err == nil || err.Error() != "encoder crashed" {
		t.Fatalf("unexpected error %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 events before failure, got %d", count)
	}
}

func TestDrainNilSequence(t *testing.T) {
	if err := Drain(nil, nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOneShotIsNotRestartable(t *testing.T) {
	runs := 0
	seq := OneShot(func(yield func(Progress, error) bool) {
		runs++
		yield(Progress{Done: true}, nil)
	})
	if err := Drain(seq, nil); err != nil {
		t.Fatalf("first drain: %v", err)
	}
	if err := Drain(seq, nil); !errors.Is(err, ErrSequenceConsumed) {
		t.Fatalf("expected ErrSequenceConsumed, got %v", err)
	}
	if runs != 1 {
		t.Fatalf("producer ran %d times", runs)
	}
}
