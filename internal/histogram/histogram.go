// Package histogram prints text-mode bar histograms.
package histogram

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const block = "█"

// Bin is one equal-width bucket. Lo is inclusive, Hi exclusive except for
// the last bin, which also holds the maximum.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Compute drops NaN values and splits the observed range into n equal-width
// bins. A zero-width range is widened by 0.5 on each side; no data at all
// uses [0, 1].
func Compute(values []float64, n int) []Bin {
	if n <= 0 {
		n = 1
	}

	data := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}

	lo, hi := 0.0, 1.0
	if len(data) > 0 {
		lo, hi = data[0], data[0]
		for _, v := range data[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi

	for _, v := range data {
		idx := int((v - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].Count++
	}

	return bins
}

// Render writes one row per bin with a bar scaled so the tallest bin spans
// width characters.
func Render(w io.Writer, values []float64, bins, width int) error {
	computed := Compute(values, bins)
	width = max(width, 0)

	maxCount := 0
	for _, b := range computed {
		maxCount = max(maxCount, b.Count)
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, b := range computed {
		bar := strings.Repeat(block, width*b.Count/maxCount)
		if _, err := fmt.Fprintf(w, "[%8.2f, %8.2f): %s (%d)\n", b.Lo, b.Hi, bar, b.Count); err != nil {
			return err
		}
	}
	return nil
}

// Ints converts integer samples for Render.
func Ints[T ~int | ~int64](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
