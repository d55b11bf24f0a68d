package domain

import (
	"errors"
	"testing"
)

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		name     string
		capacity int
		count    int
		status   LocationStatus
		closed   bool
	}{
		{"empty", 100, 0, StatusNormal, false},
		{"below warning", 100, 79, StatusNormal, false},
		{"warning floor", 100, 80, StatusWarning, false},
		{"at capacity", 100, 100, StatusWarning, false},
		{"over capacity", 100, 101, StatusCritical, true},
		{"small room warning", 20, 16, StatusWarning, false},
		{"small room over", 20, 21, StatusCritical, true},
		{"fractional warning floor", 30, 24, StatusWarning, false},
		{"just under warning", 30, 23, StatusNormal, false},
	}

	for _, tc := range cases {
		d, err := Classify(tc.capacity, tc.count)
		if err != nil {
			t.Fatalf("%s: classify: %v", tc.name, err)
		}
		if d.Status != tc.status {
			t.Fatalf("%s: status = %s, want %s", tc.name, d.Status, tc.status)
		}
		if d.EntryClosed != tc.closed {
			t.Fatalf("%s: entry_closed = %v, want %v", tc.name, d.EntryClosed, tc.closed)
		}
		wantAvail := tc.capacity - tc.count
		if wantAvail < 0 {
			wantAvail = 0
		}
		if d.AvailableCapacity != wantAvail {
			t.Fatalf("%s: available = %d, want %d", tc.name, d.AvailableCapacity, wantAvail)
		}
	}
}

func TestClassifyLoadPercentage(t *testing.T) {
	d, err := Classify(50, 10)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if d.LoadPercentage != 20 {
		t.Fatalf("load = %v, want 20", d.LoadPercentage)
	}

	d, err = Classify(100, 101)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if d.LoadPercentage <= 100 {
		t.Fatalf("load = %v, want > 100", d.LoadPercentage)
	}
}

func TestClassifyRejectsNonPositiveCapacity(t *testing.T) {
	if _, err := Classify(0, 5); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("capacity 0: err = %v, want ErrInvalidCapacity", err)
	}
	if _, err := Classify(-3, 0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("capacity -3: err = %v, want ErrInvalidCapacity", err)
	}
}

func TestClassifyClampsNegativeCount(t *testing.T) {
	d, err := Classify(40, -2)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if d.LoadPercentage != 0 || d.AvailableCapacity != 40 || d.Status != StatusNormal {
		t.Fatalf("negative count not clamped: %+v", d)
	}
}
