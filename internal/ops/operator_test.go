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

package ops

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/ptrenker/hymstretch/internal/fits"
)

func newTestImage(width, height int32, value float32) *fits.Image {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = value
	}
	return fits.NewImageFromNaxisn([]int32{width, height}, data)
}

func TestNewContextMemoryFields(t *testing.T) {
	c := NewContext(io.Discard)
	if c.MemoryMB <= 0 {
		t.Errorf("physical memory %d MiB, expected positive", c.MemoryMB)
	}
	if c.WorkMemoryMB != c.MemoryMB*7/10 {
		t.Errorf("working memory %d MiB, expected %d", c.WorkMemoryMB, c.MemoryMB*7/10)
	}
	if c.MaxThreads < 1 {
		t.Errorf("max threads %d, expected at least 1", c.MaxThreads)
	}
}

func TestOpSaveUnmarshalDefaults(t *testing.T) {
	var op OpSave
	if err := json.Unmarshal([]byte(`{"type":"save","filePattern":""}`), &op); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	if op.OpUnaryBase.Apply == nil {
		t.Fatal("Apply is nil after unmarshal")
	}
	f := newTestImage(4, 4, 0.5)
	res, err := op.Apply(f, NewContext(io.Discard))
	if err != nil {
		t.Fatalf("apply: %s", err)
	}
	if res != f {
		t.Error("save with empty pattern is not a passthrough")
	}
}

func TestOpSequenceUnmarshalFactories(t *testing.T) {
	data := []byte(`{"type":"seq","active":true,"steps":[{"type":"save","filePattern":""}]}`)
	var seq OpSequence
	if err := json.Unmarshal(data, &seq); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	if len(seq.Steps) != 1 {
		t.Fatalf("expected 1 step, have %d", len(seq.Steps))
	}
	save, ok := seq.Steps[0].(*OpSave)
	if !ok {
		t.Fatalf("step is %T, expected *OpSave", seq.Steps[0])
	}
	if save.OpUnaryBase.Apply == nil {
		t.Fatal("Apply is nil on factory-decoded step")
	}
}

func TestContextMaterializeAllWithinMemory(t *testing.T) {
	buf := &bytes.Buffer{}
	// zero working memory must degrade to single-threaded, never to zero
	c := &Context{Log: buf, MemoryMB: 16, WorkMemoryMB: 0, MaxThreads: 4}
	ins := make([]Promise, 3)
	for i := range ins {
		id := i
		ins[i] = func() (*fits.Image, error) {
			f := newTestImage(8, 8, float32(id))
			f.ID = id
			return f, nil
		}
	}
	outs, err := c.MaterializeAll(ins, false)
	if err != nil {
		t.Fatalf("materialize: %s", err)
	}
	if len(outs) != 3 {
		t.Fatalf("expected 3 images, have %d", len(outs))
	}
	if outs[0].ID != 0 {
		t.Errorf("first image has id %d, expected 0", outs[0].ID)
	}
	if !strings.Contains(buf.String(), "working budget") {
		t.Errorf("memory headroom not reported, log was %q", buf.String())
	}
}
