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
	"fmt"

	"github.com/ptrenker/hymstretch/internal/fits"
	"github.com/ptrenker/hymstretch/internal/ops"
)

// Composition modes for recombining stars with a starless base
const (
	ComposeLinearAdd = "linearAdd" // physically accurate, can clip bright cores
	ComposeScreen    = "screen"    // bounded by 1, safe against core blowout
)

// Composes a stretched star layer onto a stretched starless base image.
// Takes two inputs, star layer first, and produces one output
type OpCompose struct {
	ops.OpBase
	Mode string `json:"mode"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpComposeDefault() }) } // register the operator for JSON decoding

func NewOpComposeDefault() *OpCompose { return NewOpCompose(ComposeScreen) }

func NewOpCompose(mode string) *OpCompose {
	return &OpCompose{
		OpBase: ops.OpBase{Type: "compose", Active: true},
		Mode:   mode,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpCompose) UnmarshalJSON(data []byte) error {
	type defaults OpCompose
	def := defaults(*NewOpComposeDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpCompose(def)
	return nil
}

func (op *OpCompose) MakePromises(ins []ops.Promise, c *ops.Context) (outs []ops.Promise, err error) {
	if len(ins) != 2 {
		return nil, fmt.Errorf("%s operator with %d inputs; need star layer and base", op.Type, len(ins))
	}
	out := func() (f *fits.Image, err error) {
		fs, err := ops.MaterializeAll(ins, c.MaxThreads, false)
		if err != nil {
			return nil, err
		}
		return op.Apply(fs[0], fs[1], c)
	}
	return []ops.Promise{out}, nil
}

func (op *OpCompose) Apply(star, base *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if !fits.EqualInt32Slice(star.Naxisn, base.Naxisn) {
		return nil, fmt.Errorf("dimension mismatch: star layer is %s, base is %s",
			star.DimensionsToString(), base.DimensionsToString())
	}
	fmt.Fprintf(c.Log, "%d: Composing %s star layer onto base with mode %s\n",
		base.ID, star.DimensionsToString(), op.Mode)

	res := fits.NewImageFromImage(base)
	switch op.Mode {
	case ComposeLinearAdd:
		for i, b := range base.Data {
			v := b + star.Data[i]
			if v > 1 {
				v = 1
			}
			if v < 0 {
				v = 0
			}
			res.Data[i] = v
		}
	case ComposeScreen:
		for i, b := range base.Data {
			v := 1 - (1-b)*(1-star.Data[i])
			if v > 1 {
				v = 1
			}
			if v < 0 {
				v = 0
			}
			res.Data[i] = v
		}
	default:
		return nil, fmt.Errorf("unknown composition mode %q", op.Mode)
	}
	return res, nil
}
