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

// Number of bins for the adaptive anchor histogram over [0,1]
const AnchorHistogramBins = 65536

// Histogram counts the data into the given bins over the value range [0,1].
// Out of range values are clamped into the first/last bin.
func Histogram(data []float32, bins []int32) {
	for i := range bins {
		bins[i] = 0
	}
	scale := float32(len(bins) - 1)
	for _, d := range data {
		index := int(d * scale)
		if index < 0 {
			index = 0
		}
		if index > len(bins)-1 {
			index = len(bins) - 1
		}
		bins[index]++
	}
}

// SmoothBins applies a symmetric moving average with the given half window
// to the bins, truncating the window at the histogram boundaries.
func SmoothBins(bins []int32, halfWindow int) []float32 {
	smoothed := make([]float32, len(bins))
	for i := range bins {
		lower := i - halfWindow
		if lower < 0 {
			lower = 0
		}
		upper := i + halfWindow
		if upper > len(bins)-1 {
			upper = len(bins) - 1
		}
		sum := int64(0)
		for j := lower; j <= upper; j++ {
			sum += int64(bins[j])
		}
		smoothed[i] = float32(sum) / float32(upper-lower+1)
	}
	return smoothed
}

// PeakIndex returns the index of the largest smoothed bin at or after start.
// The start offset skips a potential zero spike from clipped blacks.
func PeakIndex(smoothed []float32, start int) int {
	if start > len(smoothed)-1 {
		start = len(smoothed) - 1
	}
	if start < 0 {
		start = 0
	}
	maxIndex, maxValue := start, smoothed[start]
	for i := start + 1; i < len(smoothed); i++ {
		if smoothed[i] > maxValue {
			maxIndex, maxValue = i, smoothed[i]
		}
	}
	return maxIndex
}

// WalkBackFromPeak walks backward from the peak bin until the smoothed count
// drops below fraction times the peak value, and returns that bin index.
// Returns 0 if the count never drops below the threshold.
func WalkBackFromPeak(smoothed []float32, peak int, fraction float32) int {
	threshold := smoothed[peak] * fraction
	for i := peak; i >= 0; i-- {
		if smoothed[i] < threshold {
			return i
		}
	}
	return 0
}
