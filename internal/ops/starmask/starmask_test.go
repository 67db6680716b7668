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

package starmask

import (
	"encoding/json"
	"io"
	"math"
	"testing"

	"github.com/ptrenker/hymstretch/internal/fits"
	"github.com/ptrenker/hymstretch/internal/ops"
)

func newMonoImage(width, height int32, value float32) *fits.Image {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = value
	}
	return fits.NewImageFromNaxisn([]int32{width, height}, data)
}

func newGrayColorImage(width, height int32, value float32) *fits.Image {
	data := make([]float32, 3*width*height)
	for i := range data {
		data[i] = value
	}
	return fits.NewImageFromNaxisn([]int32{width, height, 3}, data)
}

func TestClampKernelSize(t *testing.T) {
	cases := [][2]int{{0, 3}, {2, 3}, {3, 3}, {4, 5}, {40, 41}, {127, 127}, {128, 127}, {500, 127}}
	for _, c := range cases {
		if got := clampKernelSize(c[0]); got != c[1] {
			t.Errorf("clampKernelSize(%d)=%d; want %d", c[0], got, c[1])
		}
	}
}

func TestRejectLargeScaleRemovesFlatField(t *testing.T) {
	// a flat field is pure low frequency content, so full intensity
	// rejection must take it to zero
	f := newMonoImage(64, 60, 0.5)
	op := NewOpRejectLargeScale(1)
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range res.Data {
		if math.Abs(float64(v)) > 1e-5 {
			t.Errorf("pixel %d=%g; want 0", i, v)
		}
	}
}

func TestRejectLargeScaleKeepsStars(t *testing.T) {
	f := newMonoImage(64, 60, 0)
	center := 30*64 + 32
	f.Data[center] = 1
	op := NewOpRejectLargeScale(1)
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if res.Data[center] < 0.5 {
		t.Errorf("star core=%g; want mostly preserved", res.Data[center])
	}
}

func TestRejectLargeScaleZeroIntensityIsNoop(t *testing.T) {
	f := newMonoImage(32, 32, 0.5)
	op := NewOpRejectLargeScale(0)
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range res.Data {
		if v != 0.5 {
			t.Fatalf("zero intensity changed pixel to %g", v)
		}
	}
}

func TestHealOpticsPreservesGray(t *testing.T) {
	// neutral pixels have zero chroma, so blurring chroma changes nothing
	f := newGrayColorImage(32, 32, 0.4)
	op := NewOpHealOptics(5)
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range res.Data {
		if math.Abs(float64(v)-0.4) > 1e-3 {
			t.Errorf("pixel %d=%g; want 0.4", i, v)
		}
	}
}

func TestHealOpticsSmoothsChromaFringe(t *testing.T) {
	// a saturated color fringe on a neutral field loses chroma once the
	// chroma planes are blurred
	width, height := int32(32), int32(32)
	f := newGrayColorImage(width, height, 0.3)
	pixels := int(width * height)
	center := 16*32 + 16
	f.Data[center] = 0.9           // strong red spike
	f.Data[2*pixels+center] = 0.05 // and a blue dip

	op := NewOpHealOptics(3)
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	rb := math.Abs(float64(res.Data[center] - res.Data[2*pixels+center]))
	if rb >= 0.85 {
		t.Errorf("chroma spread after healing=%g; want reduced below input 0.85", rb)
	}
}

func TestHealOpticsMonoIsNoop(t *testing.T) {
	f := newMonoImage(16, 16, 0.4)
	op := NewOpHealOptics(5)
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range res.Data {
		if v != 0.4 {
			t.Fatalf("mono healing changed pixel to %g", v)
		}
	}
}

func TestReduceStarsShrinksStar(t *testing.T) {
	// 3x3 star block; erosion blended at full intensity leaves only the center
	f := newMonoImage(16, 16, 0)
	for y := 7; y <= 9; y++ {
		for x := 7; x <= 9; x++ {
			f.Data[y*16+x] = 1
		}
	}
	op := NewOpReduceStars(1)
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if res.Data[8*16+8] < 0.99 {
		t.Errorf("star center=%g; want preserved", res.Data[8*16+8])
	}
	if res.Data[7*16+7] > 0.01 {
		t.Errorf("star corner=%g; want eroded away", res.Data[7*16+7])
	}
}

func TestReduceStarsHalfIntensityBlends(t *testing.T) {
	f := newMonoImage(16, 16, 0)
	for y := 6; y <= 10; y++ {
		for x := 6; x <= 10; x++ {
			f.Data[y*16+x] = 1
		}
	}
	op := NewOpReduceStars(0.4) // disc size 3
	res, err := op.Apply(f, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	corner := res.Data[6*16+6]
	if math.Abs(float64(corner)-0.6) > 1e-6 {
		t.Errorf("star corner=%g; want 0.6 from 40%% erosion blend", corner)
	}
}

func TestStarSurgerySequenceOrder(t *testing.T) {
	seq := NewOpStarSurgery(0.5, 2, 0.3)
	if len(seq.Steps) != 3 {
		t.Fatalf("surgery sequence has %d steps; want 3", len(seq.Steps))
	}
	wantTypes := []string{"rejectLargeScale", "healOptics", "reduceStars"}
	for i, step := range seq.Steps {
		if step.GetType() != wantTypes[i] {
			t.Errorf("step %d is %s; want %s", i, step.GetType(), wantTypes[i])
		}
	}
}

func TestStarSurgeryUnmarshalDefaults(t *testing.T) {
	var heal OpHealOptics
	if err := json.Unmarshal([]byte(`{"type":"healOptics","active":true,"strength":2}`), &heal); err != nil {
		t.Fatalf("unmarshal healOptics: %s", err)
	}
	if heal.Strength != 2 {
		t.Errorf("strength %g, expected 2", heal.Strength)
	}
	if heal.OpUnaryBase.Apply == nil {
		t.Fatal("healOptics Apply is nil after unmarshal")
	}

	var reduce OpReduceStars
	if err := json.Unmarshal([]byte(`{"type":"reduceStars","active":true,"intensity":0.4}`), &reduce); err != nil {
		t.Fatalf("unmarshal reduceStars: %s", err)
	}
	if reduce.OpUnaryBase.Apply == nil {
		t.Fatal("reduceStars Apply is nil after unmarshal")
	}

	// decoded operators must run through the promise machinery
	f := newMonoImage(16, 16, 0.5)
	outs, err := reduce.MakePromises([]ops.Promise{func() (*fits.Image, error) { return f, nil }}, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatalf("make promises: %s", err)
	}
	if _, err := outs[0](); err != nil {
		t.Fatalf("materialize: %s", err)
	}
}
