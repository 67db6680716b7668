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
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	arr := []float32{5, 3, 1, 4, 2}
	tcs := []struct {
		p      float32
		expect float32
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{75, 4},
		{100, 5},
		{12.5, 1.5},
	}
	for _, tc := range tcs {
		if res := Percentile(arr, tc.p); math.Abs(float64(res-tc.expect)) > 1e-6 {
			t.Errorf("percentile(%v, %f) got %f expect %f", arr, tc.p, res, tc.expect)
		}
	}

	if res := Percentile(nil, 50); res != 0 {
		t.Errorf("percentile(nil) got %f expect 0", res)
	}
	if res := Percentile([]float32{7}, 99); res != 7 {
		t.Errorf("percentile([7]) got %f expect 7", res)
	}
}

func TestSubsampleStride(t *testing.T) {
	data := make([]float32, 1000)
	for i := range data {
		data[i] = float32(i)
	}

	// budget above length: every pixel visited
	samples := Subsample(data, 2000)
	if len(samples) != len(data) {
		t.Errorf("got %d samples expect %d", len(samples), len(data))
	}

	// budget 250: stride 4, visits 0, 4, 8, ...
	samples = Subsample(data, 250)
	if len(samples) != 250 {
		t.Errorf("got %d samples expect 250", len(samples))
	}
	for i, s := range samples {
		if s != float32(i*4) {
			t.Fatalf("sample %d got %f expect %d", i, s, i*4)
		}
	}
}

func TestSubsampleLuminance(t *testing.T) {
	// 4 pixel RGB raster, channel planar
	data := []float32{
		0.1, 0.2, 0.3, 0.4, // R
		0.2, 0.4, 0.6, 0.8, // G
		0.0, 0.1, 0.2, 0.3, // B
	}
	samples := SubsampleLuminance(data, 4, 0.25, 0.5, 0.25, 100)
	if len(samples) != 4 {
		t.Fatalf("got %d samples expect 4", len(samples))
	}
	expect := []float32{0.125, 0.275, 0.425, 0.575}
	for i, s := range samples {
		if math.Abs(float64(s-expect[i])) > 1e-6 {
			t.Errorf("sample %d got %f expect %f", i, s, expect[i])
		}
	}
}

func TestMeanStdDevPopulation(t *testing.T) {
	// population stddev of [1..4] is sqrt(1.25), not the sample sqrt(5/3)
	arr := []float32{1, 2, 3, 4}
	mean, stdDev := MeanStdDev(arr)
	if math.Abs(float64(mean-2.5)) > 1e-6 {
		t.Errorf("mean got %f expect 2.5", mean)
	}
	if expect := math.Sqrt(1.25); math.Abs(float64(stdDev)-expect) > 1e-6 {
		t.Errorf("stdDev got %f expect %f", stdDev, expect)
	}
}

func TestMedian(t *testing.T) {
	if res := Median([]float32{3, 1, 2}); res != 2 {
		t.Errorf("median got %f expect 2", res)
	}
	if res := Median([]float32{4, 1, 3, 2}); res != 2.5 {
		t.Errorf("median got %f expect 2.5", res)
	}
	if res := Median(nil); res != 0 {
		t.Errorf("median(nil) got %f expect 0", res)
	}
}

func TestHistogramPeakWalkback(t *testing.T) {
	// synthetic sky background: a broad bump around bin 5000
	bins := make([]int32, AnchorHistogramBins)
	for i := 4000; i < 6000; i++ {
		d := float32(i-5000) / 500
		bins[i] = int32(10000 * math.Exp(float64(-0.5*d*d)))
	}
	smoothed := SmoothBins(bins, 50)

	peak := PeakIndex(smoothed, 100)
	if peak < 4900 || peak > 5100 {
		t.Errorf("peak got %d expect near 5000", peak)
	}

	anchor := WalkBackFromPeak(smoothed, peak, 0.06)
	if anchor <= 0 || anchor >= peak {
		t.Errorf("walkback got %d expect in (0, %d)", anchor, peak)
	}
	if smoothed[anchor] >= smoothed[peak]*0.06 {
		t.Errorf("walkback bin %d count %f not below 6%% of peak %f", anchor, smoothed[anchor], smoothed[peak])
	}
	if anchor+1 <= peak && smoothed[anchor+1] < smoothed[peak]*0.06 {
		t.Errorf("walkback bin %d is not the first below threshold", anchor)
	}
}
