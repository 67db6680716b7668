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

// Package morph implements grayscale morphology on 2D float32 images.
package morph

// A structuring element given by offsets from the anchor pixel
type Element struct {
	DxDys [][2]int
}

// Returns a disc shaped structuring element of the given odd size.
// Sizes 3 and 5 yield the usual 4-connected and 12-pixel discs
func DiscElement(size int) *Element {
	if size < 3 {
		size = 3
	}
	if size%2 == 0 {
		size++
	}
	radius := size / 2
	r2 := float32(radius*radius) + 0.5
	e := &Element{}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if float32(dx*dx+dy*dy) <= r2 {
				e.DxDys = append(e.DxDys, [2]int{dx, dy})
			}
		}
	}
	return e
}

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

// Grayscale erosion of the 2D image given by data and width with the
// given structuring element. Borders are reflected. Returns the result
// in res, which must be a distinct buffer of the same length
func Erode(res, data []float32, width int, elem *Element) {
	height := len(data) / width
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			min := data[y*width+x]
			for _, d := range elem.DxDys {
				x1 := reflect(width, x+d[0])
				y1 := reflect(height, y+d[1])
				if v := data[y1*width+x1]; v < min {
					min = v
				}
			}
			res[y*width+x] = min
		}
	}
}
