package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Very low multiplier",
			multiplier: 0.1,
			limit:      0,
			minExpect:  1,
			maxExpect:  maxInt(1, int(float64(availableCPU)*0.1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
	}{
		{name: "Override honoured", envValue: "4", limit: 0, expected: 4},
		{name: "Override capped by limit", envValue: "10", limit: 3, expected: 3},
		{name: "Invalid override ignored", envValue: "abc", limit: 1, expected: 1},
		{name: "Zero override ignored", envValue: "0", limit: 1, expected: 1},
		{name: "Negative override ignored", envValue: "-2", limit: 1, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OverrideEnv, tt.envValue)

			if got := Count(1.0, tt.limit); got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%q = %d, want %d", tt.limit, OverrideEnv, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForCPU(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	got := ForCPU(0)
	if got < 1 || got > runtime.GOMAXPROCS(0) {
		t.Errorf("ForCPU(0) = %d, want between 1 and %d", got, runtime.GOMAXPROCS(0))
	}
	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
}

func BenchmarkCount(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Count(1.0, 0)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
