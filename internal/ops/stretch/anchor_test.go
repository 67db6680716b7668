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
	"testing"

	"github.com/valyala/fastrand"

	"github.com/ptrenker/hymstretch/internal/fits"
	"github.com/ptrenker/hymstretch/internal/sensor"
)

func newMonoImage(width, height int32, value float32) *fits.Image {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = value
	}
	return fits.NewImageFromNaxisn([]int32{width, height}, data)
}

func newColorImage(width, height int32, r, g, b float32) *fits.Image {
	pixels := int(width * height)
	data := make([]float32, 3*pixels)
	for i := 0; i < pixels; i++ {
		data[i], data[pixels+i], data[2*pixels+i] = r, g, b
	}
	return fits.NewImageFromNaxisn([]int32{width, height, 3}, data)
}

func TestStatisticalAnchorMono(t *testing.T) {
	f := newMonoImage(32, 32, 0.1)
	got := StatisticalAnchor(f)
	want := float32(0.1 - 0.00025)
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("anchor=%g; want %g", got, want)
	}
}

func TestStatisticalAnchorColorTakesChannelMinimum(t *testing.T) {
	f := newColorImage(32, 32, 0.3, 0.1, 0.2)
	got := StatisticalAnchor(f)
	want := float32(0.1 - 0.00025)
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("anchor=%g; want %g", got, want)
	}
}

func TestStatisticalAnchorFloorsAtZero(t *testing.T) {
	f := newMonoImage(16, 16, 0)
	if got := StatisticalAnchor(f); got != 0 {
		t.Errorf("anchor=%g; want 0", got)
	}
}

func TestAdaptiveAnchorFindsSkyBackground(t *testing.T) {
	// synthetic sky background around 0.2 with a bright tail of stars
	rng := fastrand.RNG{}
	rng.Seed(7)
	width, height := int32(256), int32(256)
	data := make([]float32, width*height)
	for i := range data {
		noise := (float32(rng.Uint32n(10000))/10000.0 - 0.5) * 0.02
		data[i] = 0.2 + noise
		if rng.Uint32n(1000) == 0 {
			data[i] = 0.9
		}
	}
	f := fits.NewImageFromNaxisn([]int32{width, height}, data)

	prof, _ := sensor.Lookup("rec709")
	got := AdaptiveAnchor(f, prof)
	if got <= 0.1 || got >= 0.2 {
		t.Errorf("anchor=%g; want just below the 0.2 background", got)
	}
}

func TestAdaptiveAnchorFallsBackOnBlackFrame(t *testing.T) {
	f := newMonoImage(64, 64, 0)
	prof, _ := sensor.Lookup("rec709")
	if got := AdaptiveAnchor(f, prof); got != 0 {
		t.Errorf("anchor=%g; want 0 for an all-black frame", got)
	}
}
