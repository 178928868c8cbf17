package main

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	tests := []struct {
		name      string
		latencies []time.Duration
		want      latencyStats
		ok        bool
	}{
		{
			name: "empty",
			ok:   false,
		},
		{
			name:      "single element",
			latencies: []time.Duration{ms(40)},
			want: latencyStats{
				min: ms(40), mean: ms(40), max: ms(40),
				p50: ms(40), p90: ms(40), p95: ms(40), p99: ms(40),
			},
			ok: true,
		},
		{
			name:      "unsorted input",
			latencies: []time.Duration{ms(30), ms(10), ms(20)},
			want: latencyStats{
				min: ms(10), mean: ms(20), max: ms(30),
				p50: ms(20), p90: ms(20), p95: ms(20), p99: ms(20),
			},
			ok: true,
		},
		{
			// 1..100ms: nearest-rank index = p * 99.
			name:      "hundred samples",
			latencies: seq(ms, 1, 100),
			want: latencyStats{
				min: ms(1), mean: ms(50) + 500*time.Microsecond, max: ms(100),
				p50: ms(50), p90: ms(90), p95: ms(95), p99: ms(99),
			},
			ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := summarize(tt.latencies)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func seq(ms func(int) time.Duration, from, to int) []time.Duration {
	var out []time.Duration
	for i := from; i <= to; i++ {
		out = append(out, ms(i))
	}
	return out
}
