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
)

// Applies the generalized hyperbolic stretch to a single value. D is the
// linear intensity (10^logD), b protects the knee near black, SP is the
// symmetry point which maps to zero. The curve is normalized so that
// value==SP yields 0 and value==1 yields 1 for all valid D and b
func HyperbolicStretch(value, d, b, sp float64) float64 {
	if d < 0.1 {
		d = 0.1
	}
	if b < 0.1 {
		b = 0.1
	}
	asinhB := math.Asinh(b)
	num := math.Asinh(d*(value-sp)+b) - asinhB
	den := math.Asinh(d*(1-sp)+b) - asinhB
	if den < 1e-6 {
		den = 1e-6
	}
	return num / den
}

// Applies the midtones transfer function with midtones balance m.
// Fixed points at 0 and 1, identity at m=0.5
func ApplyMTF(value, m float64) float64 {
	if value <= 0 {
		return 0
	}
	if value >= 1 {
		return 1
	}
	num := (m - 1) * value
	den := (2*m-1)*value - m
	if math.Abs(den) < 1e-9 {
		return value
	}
	v := num / den
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Solves the closed form midtones balance m which maps the given current
// background level onto the target via ApplyMTF
func SolveMTFBalance(currentBg, targetBg float64) float64 {
	den := currentBg*(2*targetBg-1) - targetBg
	if math.Abs(den) < 1e-9 {
		return 0.5
	}
	return currentBg * (targetBg - 1) / den
}

// Finds the stretch intensity exponent logD in [0,7] which maps medianIn
// onto targetMedian, via bisection. The stretch is monotonically
// increasing in D for positive inputs, so plain interval halving applies
func SolveLogD(medianIn, targetMedian, b float64) float64 {
	if medianIn < 1e-9 {
		return 2.0
	}
	lo, hi := 0.0, 7.0
	logD := 0.5 * (lo + hi)
	for i := 0; i < 40; i++ {
		logD = 0.5 * (lo + hi)
		v := HyperbolicStretch(medianIn, math.Pow(10, logD), b, 0)
		if math.Abs(v-targetMedian) < 1e-4 {
			break
		}
		if v > targetMedian {
			hi = logD
		} else {
			lo = logD
		}
	}
	return logD
}

const (
	softClipThreshold = 0.98
	softClipRolloff   = 2.0
)

// Applies a smooth power law shoulder to values above the soft clip
// threshold, leaving values below unchanged
func SoftClip(v, threshold, rolloff float64) float64 {
	if v <= threshold {
		return v
	}
	t := (v - threshold) / (1 - threshold)
	if t > 1 {
		t = 1
	}
	return threshold + (1-threshold)*(1-math.Pow(1-t, rolloff))
}
