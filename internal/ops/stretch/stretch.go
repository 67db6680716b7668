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
	"encoding/json"
	"fmt"
	"math"

	"github.com/ptrenker/hymstretch/internal/fits"
	"github.com/ptrenker/hymstretch/internal/ops"
	"github.com/ptrenker/hymstretch/internal/sensor"
	"github.com/ptrenker/hymstretch/internal/stats"
)

// Processing modes for the hyperbolic stretch
const (
	ModeScientific = "scientific"   // stretch only, no cosmetic passes
	ModeReadyToUse = "ready_to_use" // stretch, then range expansion and soft clip
)

const pedestalLift = 0.005

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Stretches an image with the generalized hyperbolic transform, applied to
// a per-pixel luminance proxy and redistributed across channels so that
// the original color ratios survive the stretch. Takes one input,
// produces one output
type OpHyperStretch struct {
	ops.OpUnaryBase
	Profile           string  `json:"profile"`
	LogD              float32 `json:"logD"`
	ProtectB          float32 `json:"protectB"`
	Convergence       float32 `json:"convergence"`
	ColorGrip         float32 `json:"colorGrip"`
	ShadowConvergence float32 `json:"shadowConvergence"`
	AdaptiveAnchor    bool    `json:"adaptiveAnchor"`
	Mode              string  `json:"mode"`
	TargetBackground  float32 `json:"targetBackground"`
	AddPedestal       bool    `json:"addPedestal"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpHyperStretchDefault() }) } // register the operator for JSON decoding

func NewOpHyperStretchDefault() *OpHyperStretch {
	return NewOpHyperStretch(sensor.DefaultName, 4.0, 6.0, 2.0, 1.0, 0.0, false, ModeReadyToUse, 0.16, true)
}

func NewOpHyperStretch(profile string, logD, protectB, convergence, colorGrip, shadowConvergence float32,
	adaptiveAnchor bool, mode string, targetBackground float32, addPedestal bool) *OpHyperStretch {
	op := OpHyperStretch{
		OpUnaryBase:       ops.OpUnaryBase{OpBase: ops.OpBase{Type: "hyperStretch", Active: true}},
		Profile:           profile,
		LogD:              logD,
		ProtectB:          protectB,
		Convergence:       convergence,
		ColorGrip:         colorGrip,
		ShadowConvergence: shadowConvergence,
		AdaptiveAnchor:    adaptiveAnchor,
		Mode:              mode,
		TargetBackground:  targetBackground,
		AddPedestal:       addPedestal,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpHyperStretch) UnmarshalJSON(data []byte) error {
	type defaults OpHyperStretch
	def := defaults(*NewOpHyperStretchDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpHyperStretch(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpHyperStretch) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	prof, err := sensor.Lookup(op.Profile)
	if err != nil {
		return nil, err
	}

	// out of range parameters are clamped, not rejected
	logD := clampF32(op.LogD, 0, 7)
	protectB := clampF32(op.ProtectB, 0.1, 15)
	convergence := clampF32(op.Convergence, 1, 10)
	colorGrip := clampF32(op.ColorGrip, 0, 1)
	shadowConv := clampF32(op.ShadowConvergence, 0, 3)

	fmt.Fprintf(c.Log, "%d: Calculating anchor...\n", f.ID)
	var anchor float32
	if op.AdaptiveAnchor {
		anchor = AdaptiveAnchor(f, prof)
	} else {
		anchor = StatisticalAnchor(f)
	}

	fmt.Fprintf(c.Log, "%d: Stretching with logD=%.2f b=%.2f anchor=%.5f profile=%s\n",
		f.ID, logD, protectB, anchor, prof.Name)

	d := math.Pow(10, float64(logD))
	b := float64(protectB)
	a := float64(anchor)
	conv := float64(convergence)
	grip0 := float64(colorGrip)
	shadow := float64(shadowConv)
	pedestal := op.AddPedestal

	if f.IsColor() {
		wR, wG, wB := float64(prof.WeightR), float64(prof.WeightG), float64(prof.WeightB)
		useScalar := colorGrip < 1 || shadowConv > 0.01
		f.ApplyPixelFunction3Chan(func(rs, gs, bs []float32, params interface{}) {
			for i := range rs {
				r := math.Max(0, float64(rs[i])-a)
				g := math.Max(0, float64(gs[i])-a)
				bl := math.Max(0, float64(bs[i])-a)

				lum := wR*r + wG*g + wB*bl
				lSafe := lum + 1e-9
				lStr := clamp01(HyperbolicStretch(lum, d, b, 0))

				// converge channel ratios toward white as luminance saturates
				k := math.Pow(lStr, conv)
				rOut := lStr * ((r/lSafe)*(1-k) + k)
				gOut := lStr * ((g/lSafe)*(1-k) + k)
				bOut := lStr * ((bl/lSafe)*(1-k) + k)

				if useScalar {
					grip := grip0
					if shadow > 0 {
						grip *= math.Pow(lStr, shadow)
					}
					rScal := clamp01(HyperbolicStretch(r, d, b, 0))
					gScal := clamp01(HyperbolicStretch(g, d, b, 0))
					bScal := clamp01(HyperbolicStretch(bl, d, b, 0))
					rOut = rOut*grip + rScal*(1-grip)
					gOut = gOut*grip + gScal*(1-grip)
					bOut = bOut*grip + bScal*(1-grip)
				}

				if pedestal {
					rOut = rOut*(1-pedestalLift) + pedestalLift
					gOut = gOut*(1-pedestalLift) + pedestalLift
					bOut = bOut*(1-pedestalLift) + pedestalLift
				}

				rs[i] = float32(clamp01(rOut))
				gs[i] = float32(clamp01(gOut))
				bs[i] = float32(clamp01(bOut))
			}
		}, nil)
	} else {
		f.ApplyPixelFunction(func(data []float32, params interface{}) {
			for i, v := range data {
				out := HyperbolicStretch(math.Max(0, float64(v)-a), d, b, 0)
				if pedestal {
					out = out*(1-pedestalLift) + pedestalLift
				}
				data[i] = float32(clamp01(out))
			}
		}, nil)
	}

	if op.Mode == ModeReadyToUse {
		if f, err = NewOpRangeExpand(prof.Name, op.TargetBackground).Apply(f, c); err != nil {
			return nil, err
		}
		if f, err = NewOpSoftClipDefault().Apply(f, c); err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(c.Log, "%d: Complete!\n", f.ID)
	return f, nil
}

const (
	expansionPedestal  = 0.001
	expansionSigmaRule = 2.7
	expansionSoftSpot  = 0.98
)

// Expands the dynamic range of a stretched image. Re-estimates black and
// white points from percentiles of the result, rescales linearly, and
// retargets the median background with a closed form midtones transfer.
// Takes one input, produces one output
type OpRangeExpand struct {
	ops.OpUnaryBase
	Profile          string  `json:"profile"`
	TargetBackground float32 `json:"targetBackground"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRangeExpandDefault() }) } // register the operator for JSON decoding

func NewOpRangeExpandDefault() *OpRangeExpand { return NewOpRangeExpand(sensor.DefaultName, 0.16) }

func NewOpRangeExpand(profile string, targetBackground float32) *OpRangeExpand {
	op := OpRangeExpand{
		OpUnaryBase:      ops.OpUnaryBase{OpBase: ops.OpBase{Type: "rangeExpand", Active: true}},
		Profile:          profile,
		TargetBackground: targetBackground,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRangeExpand) UnmarshalJSON(data []byte) error {
	type defaults OpRangeExpand
	def := defaults(*NewOpRangeExpandDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpRangeExpand(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

// Resamples the luminance of a color image, or the raw values of a mono
// image, within the general statistics budget
func resampleLuminance(f *fits.Image, prof sensor.Profile) []float32 {
	if f.IsColor() {
		return stats.SubsampleLuminance(f.Data, int(f.PixelsPerChannel()),
			prof.WeightR, prof.WeightG, prof.WeightB, stats.StatSampleBudget)
	}
	return stats.Subsample(f.Data, stats.StatSampleBudget)
}

func (op *OpRangeExpand) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	prof, err := sensor.Lookup(op.Profile)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Log, "%d: Adaptive Scaling...\n", f.ID)

	samples := resampleLuminance(f, prof)
	if len(samples) == 0 {
		return f, nil
	}
	median := stats.Median(samples)
	_, stdDev := stats.MeanStdDev(samples)
	minVal := stats.Min(samples)

	// black point just below the background noise floor
	globalFloor := median - expansionSigmaRule*stdDev
	if globalFloor < minVal {
		globalFloor = minVal
	}

	// white points from high percentiles. For color images each channel
	// contributes its own percentile, and the maximum wins, so that one
	// channel's outlier cannot compress the others
	var softCeil, hardCeil float32
	if f.IsColor() {
		pixels := int(f.PixelsPerChannel())
		for ch := 0; ch < 3; ch++ {
			plane := stats.Subsample(f.Data[ch*pixels:(ch+1)*pixels], stats.StatSampleBudget)
			if s := stats.Percentile(plane, 99); s > softCeil {
				softCeil = s
			}
			if h := stats.Percentile(plane, 99.99); h > hardCeil {
				hardCeil = h
			}
		}
	} else {
		softCeil = stats.Percentile(samples, 99)
		hardCeil = stats.Percentile(samples, 99.99)
	}
	if softCeil <= globalFloor {
		softCeil = globalFloor + 1e-6
	}
	if hardCeil <= softCeil {
		hardCeil = softCeil + 1e-6
	}

	// the more conservative of the contrast target and the hard safety
	softScale := (expansionSoftSpot - expansionPedestal) / (softCeil - globalFloor)
	hardScale := (1.0 - expansionPedestal) / (hardCeil - globalFloor)
	finalScale := softScale
	if hardScale < finalScale {
		finalScale = hardScale
	}

	fmt.Fprintf(c.Log, "%d: Expanding with floor=%.5f softCeil=%.5f hardCeil=%.5f scale=%.4f\n",
		f.ID, globalFloor, softCeil, hardCeil, finalScale)

	f.ApplyPixelFunction(func(data []float32, params interface{}) {
		for i, v := range data {
			data[i] = float32(clamp01(float64((v-globalFloor)*finalScale + expansionPedestal)))
		}
	}, nil)

	// linear expansion cannot place the median exactly, so retarget it
	// with a midtones transfer when it landed off
	expanded := resampleLuminance(f, prof)
	currentBg := float64(stats.Median(expanded))
	targetBg := float64(op.TargetBackground)
	if math.Abs(currentBg-targetBg) > 0.001 {
		m := SolveMTFBalance(currentBg, targetBg)
		fmt.Fprintf(c.Log, "%d: Retargeting background %.4f to %.4f with midtones balance %.4f\n",
			f.ID, currentBg, targetBg, m)
		f.ApplyPixelFunction(func(data []float32, params interface{}) {
			for i, v := range data {
				data[i] = float32(ApplyMTF(float64(v), m))
			}
		}, nil)
	}
	return f, nil
}

// Rolls off values above a threshold with a smooth power law shoulder,
// removing hard clipping artifacts. Takes one input, produces one output
type OpSoftClip struct {
	ops.OpUnaryBase
	Threshold float32 `json:"threshold"`
	Rolloff   float32 `json:"rolloff"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSoftClipDefault() }) } // register the operator for JSON decoding

func NewOpSoftClipDefault() *OpSoftClip { return NewOpSoftClip(softClipThreshold, softClipRolloff) }

func NewOpSoftClip(threshold, rolloff float32) *OpSoftClip {
	op := OpSoftClip{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "softClip", Active: true}},
		Threshold:   threshold,
		Rolloff:     rolloff,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSoftClip) UnmarshalJSON(data []byte) error {
	type defaults OpSoftClip
	def := defaults(*NewOpSoftClipDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpSoftClip(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpSoftClip) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	fmt.Fprintf(c.Log, "%d: Soft-clip Polish...\n", f.ID)
	threshold := float64(op.Threshold)
	rolloff := float64(op.Rolloff)
	f.ApplyPixelFunction(func(data []float32, params interface{}) {
		for i, v := range data {
			data[i] = float32(SoftClip(float64(v), threshold, rolloff))
		}
	}, nil)
	return f, nil
}
