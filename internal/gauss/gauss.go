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

// Package gauss provides separable gaussian blurs on 2D float32 images.
package gauss

import (
	"math"
)

const sqrt2 = float32(1.41421356237309504880168872420969808)

// Check if coordinate is within [0, size-1], and if not, reflect out of
// bounds coordinates back into the value range
func reflect(size, x int) int {
	if x < 0 {
		return -x - 1
	}
	if x >= size {
		return 2*size - x - 1
	}
	return x
}

// Returns the definite integral of the gaussian function with midpoint mu
// and standard deviation sigma for input x
func GaussianDefiniteIntegral(mu, sigma, x float32) float32 {
	return 0.5 * (1 + float32(math.Erf(float64((x-mu)/(sqrt2*sigma)))))
}

// Generates a 1D gaussian kernel for the given sigma. Based on symbolic
// integration via error function
func GaussianKernel1D(sigma float32) (kernel []float32) {
	mu := float32(0)

	// Find minimal kernel width for which the area under the curve left
	// of the kernel is below the acceptable error
	acceptOut := float32(0.01)
	radius := 0
	for {
		val := GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
		if val < acceptOut {
			radius--
			break
		}
		radius++
	}
	width := 2*radius + 1
	kernel = make([]float32, width)

	// Calculate left half of the kernel via symbolic integration
	sum := float32(0)
	lower := GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
	for i := 0; i <= radius; i++ {
		upper := GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius)+float32(i+1))
		delta := upper - lower
		kernel[i] = delta
		sum += delta
		lower = upper
	}

	// Mirror right half of the kernel to avoid numeric instability
	for i := 1; i <= radius; i++ {
		value := kernel[radius-i]
		kernel[radius+i] = value
		sum += value
	}

	// Normalize the sum of the kernel to 1, for dealing with the
	// truncated part of the distribution
	factor := 1.0 / sum
	for i := range kernel {
		kernel[i] *= factor
	}
	return kernel
}

// Returns the standard deviation matching a given odd kernel size,
// so that the kernel covers the gaussian out to roughly three sigma
func SigmaForKernelSize(size int) float32 {
	return float32(size/2)*0.3 + 0.8
}

// Generates a 1D gaussian kernel of exactly the given odd size, again
// via symbolic integration. The sigma is derived from the size
func GaussianKernel1DForSize(size int) (kernel []float32) {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	sigma := SigmaForKernelSize(size)
	radius := size / 2
	kernel = make([]float32, size)

	sum := float32(0)
	lower := GaussianDefiniteIntegral(0, sigma, float32(-0.5)-float32(radius))
	for i := 0; i <= radius; i++ {
		upper := GaussianDefiniteIntegral(0, sigma, float32(-0.5)-float32(radius)+float32(i+1))
		delta := upper - lower
		kernel[i] = delta
		sum += delta
		lower = upper
	}
	for i := 1; i <= radius; i++ {
		value := kernel[radius-i]
		kernel[radius+i] = value
		sum += value
	}
	factor := 1.0 / sum
	for i := range kernel {
		kernel[i] *= factor
	}
	return kernel
}

// Convolve the given 2D image provided by data and width with the given
// convolution kernel along the x axis, and store the result in res
func Convolve1DX(res, data []float32, width int, kernel []float32) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := float32(0.0)
			for i := -k; i <= k; i++ {
				x1 := reflect(width, x+i)
				sum += data[y*width+x1] * kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// Convolve the given 2D image provided by data and width with the given
// convolution kernel along the y axis, and store the result in res
func Convolve1DY(res, data []float32, width int, kernel []float32) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := float32(0.0)
			for i := -k; i <= k; i++ {
				y1 := reflect(height, y+i)
				sum += data[y1*width+x] * kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// Generate a convolution kernel for a 2D gauss filter of given standard
// deviation, and apply it to the 2D image given by data and width.
// Overwrites tmp and returns the result in res
func Filter2D(res, tmp, data []float32, width int, sigma float32) {
	kernel := GaussianKernel1D(sigma)
	Convolve1DX(tmp, data, width, kernel)
	Convolve1DY(res, tmp, width, kernel)
}

// Like Filter2D, but with a kernel of exactly the given odd size
func Filter2DKernelSize(res, tmp, data []float32, width int, size int) {
	kernel := GaussianKernel1DForSize(size)
	Convolve1DX(tmp, data, width, kernel)
	Convolve1DY(res, tmp, width, kernel)
}
