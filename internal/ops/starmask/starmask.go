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

// Package starmask implements surgery filters for star masks and the
// compositor which recombines a stretched star layer with a starless base.
package starmask

import (
	"encoding/json"
	"fmt"

	"github.com/ptrenker/hymstretch/internal/fits"
	"github.com/ptrenker/hymstretch/internal/gauss"
	"github.com/ptrenker/hymstretch/internal/morph"
	"github.com/ptrenker/hymstretch/internal/ops"
)

// Forces a kernel size to be odd and within [3, 127]
func clampKernelSize(size int) int {
	if size%2 == 0 {
		size++
	}
	if size < 3 {
		size = 3
	}
	if size > 127 {
		size = 127
	}
	return size
}

// Rejects large scale structures from a star mask by blending in a
// high-pass filtered copy. Galaxy cores and extended nebulosity are
// dominated by low spatial frequencies, which the high pass removes.
// Takes one input, produces one output
type OpRejectLargeScale struct {
	ops.OpUnaryBase
	Intensity float32 `json:"intensity"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRejectLargeScaleDefault() }) } // register the operator for JSON decoding

func NewOpRejectLargeScaleDefault() *OpRejectLargeScale { return NewOpRejectLargeScale(0) }

func NewOpRejectLargeScale(intensity float32) *OpRejectLargeScale {
	op := OpRejectLargeScale{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "rejectLargeScale", Active: intensity > 0}},
		Intensity:   intensity,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRejectLargeScale) UnmarshalJSON(data []byte) error {
	type defaults OpRejectLargeScale
	def := defaults(*NewOpRejectLargeScaleDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpRejectLargeScale(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpRejectLargeScale) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if op.Intensity <= 0 {
		return f, nil
	}
	intensity := op.Intensity
	if intensity > 1 {
		intensity = 1
	}
	width, height := int(f.Naxisn[0]), int(f.Naxisn[1])
	size := clampKernelSize(min(height, width) / 15)
	fmt.Fprintf(c.Log, "%d: Rejecting large scale structures with intensity %.2f kernel size %d\n",
		f.ID, intensity, size)

	pixels := int(f.PixelsPerChannel())
	lowpass := make([]float32, pixels)
	tmp := make([]float32, pixels)
	for ch := int32(0); ch < f.Channels(); ch++ {
		plane := f.Data[int(ch)*pixels : (int(ch)+1)*pixels]
		gauss.Filter2DKernelSize(lowpass, tmp, plane, width, size)
		for i, orig := range plane {
			highpass := orig - lowpass[i]
			if highpass < 0 {
				highpass = 0
			}
			if highpass > 1 {
				highpass = 1
			}
			plane[i] = orig*(1-intensity) + highpass*intensity
		}
	}
	return f, nil
}

// Heals chromatic aberration halos around bright stars by blurring only
// the chroma planes in the CIE L*a*b* decomposition, leaving luminance
// detail untouched. No-op for mono images. Takes one input, produces one output
type OpHealOptics struct {
	ops.OpUnaryBase
	Strength float32 `json:"strength"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpHealOpticsDefault() }) } // register the operator for JSON decoding

func NewOpHealOpticsDefault() *OpHealOptics { return NewOpHealOptics(0) }

func NewOpHealOptics(strength float32) *OpHealOptics {
	op := OpHealOptics{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "healOptics", Active: strength > 0}},
		Strength:    strength,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpHealOptics) UnmarshalJSON(data []byte) error {
	type defaults OpHealOptics
	def := defaults(*NewOpHealOpticsDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpHealOptics(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpHealOptics) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if op.Strength <= 0 || !f.IsColor() {
		return f, nil
	}
	strength := op.Strength
	if strength > 20 {
		strength = 20
	}
	width := int(f.Naxisn[0])
	size := clampKernelSize(int(2*strength + 1))
	fmt.Fprintf(c.Log, "%d: Healing optics with strength %.2f kernel size %d\n", f.ID, strength, size)

	f.RGBToLab()
	pixels := int(f.PixelsPerChannel())
	blurred := make([]float32, pixels)
	tmp := make([]float32, pixels)
	for ch := 1; ch <= 2; ch++ { // a* and b* planes only
		plane := f.Data[ch*pixels : (ch+1)*pixels]
		gauss.Filter2DKernelSize(blurred, tmp, plane, width, size)
		copy(plane, blurred)
	}
	f.LabToRGB()
	f.Clamp01()
	return f, nil
}

// Shrinks star disc sizes by blending in a grayscale erosion of the mask.
// Takes one input, produces one output
type OpReduceStars struct {
	ops.OpUnaryBase
	Intensity float32 `json:"intensity"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpReduceStarsDefault() }) } // register the operator for JSON decoding

func NewOpReduceStarsDefault() *OpReduceStars { return NewOpReduceStars(0) }

func NewOpReduceStars(intensity float32) *OpReduceStars {
	op := OpReduceStars{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "reduceStars", Active: intensity > 0}},
		Intensity:   intensity,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpReduceStars) UnmarshalJSON(data []byte) error {
	type defaults OpReduceStars
	def := defaults(*NewOpReduceStarsDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpReduceStars(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpReduceStars) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if op.Intensity <= 0 {
		return f, nil
	}
	intensity := op.Intensity
	if intensity > 1 {
		intensity = 1
	}
	size := 3
	if intensity >= 0.5 {
		size = 5
	}
	fmt.Fprintf(c.Log, "%d: Reducing stars with intensity %.2f disc size %d\n", f.ID, intensity, size)

	elem := morph.DiscElement(size)
	width := int(f.Naxisn[0])
	pixels := int(f.PixelsPerChannel())
	eroded := make([]float32, pixels)
	for ch := int32(0); ch < f.Channels(); ch++ {
		plane := f.Data[int(ch)*pixels : (int(ch)+1)*pixels]
		morph.Erode(eroded, plane, width, elem)
		for i, orig := range plane {
			plane[i] = orig*(1-intensity) + eroded[i]*intensity
		}
	}
	return f, nil
}

// Builds the star surgery sequence: large scale rejection, then optical
// healing, then star reduction. The order is fixed; filters with zero
// parameters pass their input through unchanged
func NewOpStarSurgery(lsr, healing, reduction float32) *ops.OpSequence {
	return ops.NewOpSequence(
		NewOpRejectLargeScale(lsr),
		NewOpHealOptics(healing),
		NewOpReduceStars(reduction),
	)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
