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

package stretch

import (
	"math"

	"github.com/ptrenker/hymstretch/internal/fits"
	"github.com/ptrenker/hymstretch/internal/sensor"
	"github.com/ptrenker/hymstretch/internal/stats"
)

const (
	anchorSafetyMargin  = 0.00025
	anchorWalkbackFrac  = 0.06
	anchorSmoothHalfWin = 50
	anchorPeakSearchMin = 100
)

// Estimates a conservative black point from per-channel low percentiles.
// For color images takes the minimum of the channel 0.5th percentiles,
// less a small safety margin, floored at zero
func StatisticalAnchor(f *fits.Image) float32 {
	anchor := float32(math.MaxFloat32)
	pixels := int(f.PixelsPerChannel())
	for ch := int32(0); ch < f.Channels(); ch++ {
		plane := f.Data[int(ch)*pixels : (int(ch)+1)*pixels]
		samples := stats.Subsample(plane, stats.StatSampleBudget)
		p := stats.Percentile(samples, 0.5)
		if p < anchor {
			anchor = p
		}
	}
	anchor -= anchorSafetyMargin
	if anchor < 0 {
		anchor = 0
	}
	return anchor
}

// Estimates the black point from the luminance histogram. Locates the
// smoothed histogram peak, which marks the dominant sky background level,
// and walks back toward black until the count falls below 6% of the peak.
// Falls back to the median of the raw samples for degenerate histograms
func AdaptiveAnchor(f *fits.Image, profile sensor.Profile) float32 {
	var samples []float32
	if f.IsColor() {
		samples = stats.SubsampleLuminance(f.Data, int(f.PixelsPerChannel()),
			profile.WeightR, profile.WeightG, profile.WeightB, stats.HistSampleBudget)
	} else {
		samples = stats.Subsample(f.Data, stats.HistSampleBudget)
	}
	if len(samples) == 0 {
		return 0
	}

	bins := make([]int32, stats.AnchorHistogramBins)
	stats.Histogram(samples, bins)
	smoothed := stats.SmoothBins(bins, anchorSmoothHalfWin)
	peak := stats.PeakIndex(smoothed, anchorPeakSearchMin)
	walkback := stats.WalkBackFromPeak(smoothed, peak, anchorWalkbackFrac)

	anchor := float32(walkback) / float32(stats.AnchorHistogramBins-1)
	if anchor <= 0 || math.IsNaN(float64(anchor)) {
		anchor = stats.Percentile(samples, 50)
	}
	return anchor
}
