package game

import (
	"testing"
	"time"

	"backend/internal/apperr"
)

func testRules() Rules {
	return Rules{
		MaxPointsPerSecond: 40,
		MinPlayMS:          2000,
		MaxRunMS:           15 * 60 * 1000,
		MaxScoreAbs:        500000,
	}
}

func TestCheckScore(t *testing.T) {
	rules := testRules()

	for _, score := range []int{0, 1, 100, 500000} {
		if err := rules.CheckScore(score); err != nil {
			t.Errorf("CheckScore(%d) = %v, want nil", score, err)
		}
	}
	for _, score := range []int{-1, 500001, 1 << 40} {
		err := rules.CheckScore(score)
		if err == nil {
			t.Errorf("CheckScore(%d) = nil, want error", score)
			continue
		}
		if apperr.CodeOf(err) != apperr.InvalidArgument {
			t.Errorf("CheckScore(%d) code = %s, want invalid-argument", score, apperr.CodeOf(err))
		}
	}
}

func TestCheckDisplayName(t *testing.T) {
	rules := testRules()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Ava", "Ava", false},
		{"  Ava  ", "Ava", false},
		{"ab", "ab", false},
		{"123456789012345678901234", "123456789012345678901234", false},
		{"", "", true},
		{"a", "", true},
		{"   a   ", "", true},
		{"1234567890123456789012345", "", true},
	}
	for _, tt := range tests {
		got, err := rules.CheckDisplayName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("CheckDisplayName(%q) = nil error, want error", tt.in)
			} else if apperr.CodeOf(err) != apperr.InvalidArgument {
				t.Errorf("CheckDisplayName(%q) code = %s, want invalid-argument", tt.in, apperr.CodeOf(err))
			}
			continue
		}
		if err != nil {
			t.Errorf("CheckDisplayName(%q) = %v, want nil", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("CheckDisplayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckDuration(t *testing.T) {
	rules := testRules()

	for _, elapsed := range []time.Duration{2 * time.Second, 30 * time.Second, 15 * time.Minute} {
		if err := rules.CheckDuration(elapsed); err != nil {
			t.Errorf("CheckDuration(%v) = %v, want nil", elapsed, err)
		}
	}
	for _, elapsed := range []time.Duration{0, time.Second, 1999 * time.Millisecond, 15*time.Minute + time.Millisecond} {
		err := rules.CheckDuration(elapsed)
		if err == nil {
			t.Errorf("CheckDuration(%v) = nil, want error", elapsed)
			continue
		}
		if apperr.CodeOf(err) != apperr.FailedPrecondition {
			t.Errorf("CheckDuration(%v) code = %s, want failed-precondition", elapsed, apperr.CodeOf(err))
		}
	}
}

func TestMaxAllowedScore(t *testing.T) {
	rules := testRules()

	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{3 * time.Second, 120},
		{2500 * time.Millisecond, 100},
		{100 * time.Millisecond, 4},
		{time.Second, 40},
		// 1001ms * 40 = 40040 points-millis, ceil -> 41
		{1001 * time.Millisecond, 41},
	}
	for _, tt := range tests {
		if got := rules.MaxAllowedScore(tt.elapsed); got != tt.want {
			t.Errorf("MaxAllowedScore(%v) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func TestCheckRate(t *testing.T) {
	rules := testRules()
	elapsed := 3 * time.Second

	if err := rules.CheckRate(120, elapsed); err != nil {
		t.Errorf("CheckRate(120, 3s) = %v, want nil", err)
	}
	err := rules.CheckRate(121, elapsed)
	if err == nil {
		t.Fatal("CheckRate(121, 3s) = nil, want error")
	}
	if apperr.CodeOf(err) != apperr.FailedPrecondition {
		t.Errorf("CheckRate(121, 3s) code = %s, want failed-precondition", apperr.CodeOf(err))
	}
}
