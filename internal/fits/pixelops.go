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

package fits

import (
	"runtime"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// A pixel function, transforming a segment of pixels in place
type PixelFunction func(data []float32, params interface{})

// A three-channel pixel function, transforming segments of the R, G and
// B planes in place. The segments are guaranteed to be of equal length.
type PixelFunction3Chan func(r, g, b []float32, params interface{})

// Applies a pixel function to the data in parallel batches
func (f *Image) ApplyPixelFunction(pf PixelFunction, args interface{}) {
	data := f.Data

	// split into 8*NumCPU batches to even out varying progress speeds
	numBatches := 8 * runtime.NumCPU()
	batchSize := (len(data) + numBatches - 1) / numBatches

	sem := make(chan bool, runtime.NumCPU())
	var wg sync.WaitGroup
	wg.Add(numBatches)
	for b := 0; b < numBatches; b++ {
		sem <- true
		go func(batch int) {
			defer func() { wg.Done(); <-sem }()
			lower := batch * batchSize
			upper := lower + batchSize
			if upper > len(data) {
				upper = len(data)
			}
			if lower >= upper {
				return
			}
			pf(data[lower:upper], args)
		}(b)
	}
	wg.Wait()
}

// Applies a three-channel pixel function to the data in parallel batches
func (f *Image) ApplyPixelFunction3Chan(pf PixelFunction3Chan, args interface{}) {
	l := len(f.Data) / 3
	rs, gs, bs := f.Data[:l], f.Data[l:2*l], f.Data[2*l:]

	numBatches := 8 * runtime.NumCPU()
	batchSize := (l + numBatches - 1) / numBatches

	sem := make(chan bool, runtime.NumCPU())
	var wg sync.WaitGroup
	wg.Add(numBatches)
	for b := 0; b < numBatches; b++ {
		sem <- true
		go func(batch int) {
			defer func() { wg.Done(); <-sem }()
			lower := batch * batchSize
			upper := lower + batchSize
			if upper > l {
				upper = l
			}
			if lower >= upper {
				return
			}
			pf(rs[lower:upper], gs[lower:upper], bs[lower:upper], args)
		}(b)
	}
	wg.Wait()
}

// Clamps all pixel values into [0, 1]
func (f *Image) Clamp01() {
	f.ApplyPixelFunction(func(data []float32, params interface{}) {
		for i, d := range data {
			if d < 0 {
				data[i] = 0
			} else if d > 1 {
				data[i] = 1
			}
		}
	}, nil)
}

// Converts the image from linear RGB into CIE L*a*b* color space, with
// L* in the red plane, a* in the green plane and b* in the blue plane.
// Panics if the image is not a color image.
func (f *Image) RGBToLab() {
	if f.Channels() != 3 {
		panic("attempt to convert non-color image to Lab")
	}
	f.ApplyPixelFunction3Chan(func(rs, gs, bs []float32, params interface{}) {
		for i := range rs {
			c := colorful.LinearRgb(float64(rs[i]), float64(gs[i]), float64(bs[i]))
			l, a, b := c.Lab()
			rs[i], gs[i], bs[i] = float32(l), float32(a), float32(b)
		}
	}, nil)
}

// Converts the image from CIE L*a*b* back into linear RGB color space.
// Panics if the image is not a color image.
func (f *Image) LabToRGB() {
	if f.Channels() != 3 {
		panic("attempt to convert non-color image to RGB")
	}
	f.ApplyPixelFunction3Chan(func(ls, as, bs []float32, params interface{}) {
		for i := range ls {
			c := colorful.Lab(float64(ls[i]), float64(as[i]), float64(bs[i]))
			r, g, b := c.LinearRgb()
			ls[i], as[i], bs[i] = float32(r), float32(g), float32(b)
		}
	}, nil)
}
