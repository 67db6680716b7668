// Copyright (C) 2023 Peter Trenker
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package stats

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ptrenker/hymstretch/internal/qsort"
)

// Pixel visit budgets for spatially subsampled statistics. Reproducible
// results require the exact same striding rule on every invocation, so
// sampling is a fixed-stride raster scan, not a random draw.
const (
	StatSampleBudget = 500000  // general statistics
	HistSampleBudget = 2000000 // adaptive anchor histogram
)

// Subsample visits pixels at flattened indices 0, stride, 2*stride, ...
// with stride = max(1, len(data)/budget), and returns the visited values.
func Subsample(data []float32, budget int) []float32 {
	if len(data) == 0 || budget <= 0 {
		return nil
	}
	stride := len(data) / budget
	if stride < 1 {
		stride = 1
	}
	samples := make([]float32, 0, len(data)/stride+1)
	for i := 0; i < len(data); i += stride {
		samples = append(samples, data[i])
	}
	return samples
}

// SubsampleLuminance visits pixels of a channel-planar RGB raster with the
// same striding rule as Subsample, and returns the weighted luminance
// wR*r + wG*g + wB*b at each visited pixel. pixels is the per-channel plane size.
func SubsampleLuminance(data []float32, pixels int, wR, wG, wB float32, budget int) []float32 {
	if pixels <= 0 || budget <= 0 {
		return nil
	}
	stride := pixels / budget
	if stride < 1 {
		stride = 1
	}
	samples := make([]float32, 0, pixels/stride+1)
	for i := 0; i < pixels; i += stride {
		samples = append(samples, wR*data[i]+wG*data[i+pixels]+wB*data[i+2*pixels])
	}
	return samples
}

// Percentile returns the p-th percentile of the samples, sorting a copy in
// ascending order and interpolating linearly between the two bracketing order
// statistics at fractional index p/100*(n-1). Returns 0 for empty input, and
// the first/only element for p<=0 or single-element input.
func Percentile(samples []float32, p float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float32(nil), samples...)
	qsort.QSortFloat32(sorted)
	if p <= 0 || len(sorted) == 1 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	index := float64(p) / 100 * float64(len(sorted)-1)
	lower := int(index)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := float32(index - float64(lower))
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// Median returns the median of the samples without modifying them.
// Returns 0 for empty input.
func Median(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	tmp := append([]float32(nil), samples...)
	return qsort.QSelectMedianFloat32(tmp)
}

// MeanStdDev returns the mean and the population standard deviation
// (divide by N, not N-1) of the samples. Returns zeros for empty input.
func MeanStdDev(samples []float32) (mean, stdDev float32) {
	if len(samples) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(s)
	}
	m, s := stat.PopMeanStdDev(xs, nil)
	return float32(m), float32(s)
}

// Min returns the smallest sample, or 0 for empty input.
func Min(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	min := samples[0]
	for _, s := range samples[1:] {
		if s < min {
			min = s
		}
	}
	return min
}
