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
	"strings"
	"testing"

	"github.com/ptrenker/hymstretch/internal/fits"
	"github.com/ptrenker/hymstretch/internal/ops"
)

func TestComposeScreenBounds(t *testing.T) {
	op := NewOpCompose(ComposeScreen)
	c := ops.NewContext(io.Discard)
	prev := float32(-1)
	for _, starV := range []float32{0, 0.1, 0.3, 0.6, 0.9, 1} {
		base := newMonoImage(4, 4, 0.4)
		star := newMonoImage(4, 4, starV)
		res, err := op.Apply(star, base, c)
		if err != nil {
			t.Fatal(err)
		}
		v := res.Data[0]
		if v < 0.4 || v > 1 {
			t.Errorf("screen(0.4, %g)=%g; want in [0.4, 1]", starV, v)
		}
		if v < prev {
			t.Errorf("screen(0.4, %g)=%g; want non-decreasing in star", starV, v)
		}
		prev = v
	}
}

func TestComposeLinearAddClamps(t *testing.T) {
	op := NewOpCompose(ComposeLinearAdd)
	base := newMonoImage(4, 4, 0.7)
	star := newMonoImage(4, 4, 0.6)
	res, err := op.Apply(star, base, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range res.Data {
		if v != 1 {
			t.Errorf("linearAdd(0.7, 0.6)=%g; want clamped to 1", v)
		}
	}
}

func TestComposeLinearAddSums(t *testing.T) {
	op := NewOpCompose(ComposeLinearAdd)
	base := newMonoImage(4, 4, 0.25)
	star := newMonoImage(4, 4, 0.5)
	res, err := op.Apply(star, base, ops.NewContext(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range res.Data {
		if v != 0.75 {
			t.Errorf("linearAdd(0.25, 0.5)=%g; want 0.75", v)
		}
	}
}

func TestComposeDimensionMismatch(t *testing.T) {
	op := NewOpCompose(ComposeScreen)
	base := newMonoImage(20, 20, 0.4)
	star := newMonoImage(10, 10, 0.4)
	if _, err := op.Apply(star, base, ops.NewContext(io.Discard)); err == nil {
		t.Errorf("composing 10x10 onto 20x20 should fail")
	} else if !strings.Contains(err.Error(), "dimension mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
	// matching dimensions succeed
	if _, err := op.Apply(newMonoImage(10, 10, 0.4), newMonoImage(10, 10, 0.2), ops.NewContext(io.Discard)); err != nil {
		t.Errorf("matching dimensions failed: %v", err)
	}
}

func TestComposeUnknownMode(t *testing.T) {
	op := NewOpCompose("multiply")
	if _, err := op.Apply(newMonoImage(4, 4, 0.1), newMonoImage(4, 4, 0.1), ops.NewContext(io.Discard)); err == nil {
		t.Errorf("unknown mode should fail")
	}
}

func TestComposeMakePromises(t *testing.T) {
	op := NewOpCompose(ComposeScreen)
	c := ops.NewContext(io.Discard)

	star := newMonoImage(8, 8, 0.5)
	base := newMonoImage(8, 8, 0.5)
	ins := []ops.Promise{
		func() (*fits.Image, error) { return star, nil },
		func() (*fits.Image, error) { return base, nil },
	}
	outs, err := op.MakePromises(ins, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 1 {
		t.Fatalf("got %d promises; want 1", len(outs))
	}
	res, err := outs[0]()
	if err != nil {
		t.Fatal(err)
	}
	want := float32(1 - 0.5*0.5)
	if res.Data[0] != want {
		t.Errorf("screen(0.5, 0.5)=%g; want %g", res.Data[0], want)
	}

	if _, err := op.MakePromises(ins[:1], c); err == nil {
		t.Errorf("single input should fail")
	}
}

func TestOpComposeUnmarshalDefaults(t *testing.T) {
	var op OpCompose
	if err := json.Unmarshal([]byte(`{"type":"compose","active":true}`), &op); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	if op.Mode != ComposeScreen {
		t.Errorf("mode %q, expected default %q", op.Mode, ComposeScreen)
	}
}
