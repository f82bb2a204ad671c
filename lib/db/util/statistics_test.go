package util

import (
	"math"
	"testing"
)

func TestNewStats(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Stats
	}{
		{"Empty", nil, Stats{}},
		{"Single", []float64{4}, Stats{Min: 4, Max: 4, Mean: 4, MinMaxRatio: 1}},
		{"Even", []float64{2, 4, 4, 4, 5, 5, 7, 9}, Stats{StdDeviation: 2, Min: 2, Max: 9, Mean: 5, MinMaxRatio: 2.0 / 9.0}},
		{"Zeros", []float64{0, 0}, Stats{MinMaxRatio: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewStats(tt.values)
			if !closeTo(got.StdDeviation, tt.want.StdDeviation) ||
				!closeTo(got.Min, tt.want.Min) ||
				!closeTo(got.Max, tt.want.Max) ||
				!closeTo(got.Mean, tt.want.Mean) ||
				!closeTo(got.MinMaxRatio, tt.want.MinMaxRatio) {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDistributionQuality(t *testing.T) {
	even := NewDistributionStats([]float64{10, 10, 10, 10})
	if !closeTo(even.DistributionQuality, 1) {
		t.Errorf("Expected quality 1 for an even distribution, got %f", even.DistributionQuality)
	}

	skewed := NewDistributionStats([]float64{40, 0, 0, 0})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Errorf("Expected skewed quality (%f) below even quality (%f)",
			skewed.DistributionQuality, even.DistributionQuality)
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()

	if h.Count() != 0 || h.AverageSize() != 0 || h.MedianEstimate() != 0 {
		t.Error("Expected an empty histogram to report zeros")
	}
	if got := h.EstimateBytes(100, 0); got != 0 {
		t.Errorf("Expected estimate 0 for an empty histogram, got %d", got)
	}

	for i := 0; i < 10; i++ {
		h.AddSample(40)
	}

	if h.Count() != 10 {
		t.Errorf("Expected 10 samples, got %d", h.Count())
	}
	if h.AverageSize() != 40 {
		t.Errorf("Expected average 40, got %d", h.AverageSize())
	}
	// 40 falls into the (16, 64] bucket
	if h.MedianEstimate() != 40 {
		t.Errorf("Expected median estimate 40, got %d", h.MedianEstimate())
	}
	if got := h.EstimateBytes(10, 0); got != 400 {
		t.Errorf("Expected estimate 400, got %d", got)
	}

	h.AddSample(64 * 1024 * 1024)
	if h.MedianEstimate() != 40 {
		t.Errorf("Expected one outlier not to move the median, got %d", h.MedianEstimate())
	}
}

func TestShardIndex(t *testing.T) {
	seed := GenerateSeed()

	if HashString("model/count", seed) != HashString("model/count", seed) {
		t.Error("Expected hashing to be deterministic for a fixed seed")
	}

	counts := make([]int, 8)
	for i := 0; i < 8000; i++ {
		idx := ShardIndex(HashString(string(rune(i))+"/key", seed), len(counts))
		if idx < 0 || idx >= len(counts) {
			t.Fatalf("Shard index %d out of range", idx)
		}
		counts[idx]++
	}
	for i, c := range counts {
		if c == 0 {
			t.Errorf("Shard %d received no keys", i)
		}
	}

	if ShardIndex(12345, 1) != 0 || ShardIndex(12345, 0) != 0 {
		t.Error("Expected a single shard to always be selected")
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
