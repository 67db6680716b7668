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

package sensor

import (
	"math"
	"testing"
)

func TestWeightsSumToOne(t *testing.T) {
	for _, name := range Names() {
		p, err := Lookup(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		sum := p.WeightR + p.WeightG + p.WeightB
		if math.Abs(float64(sum-1)) > 1e-3 {
			t.Errorf("%s weights sum to %f; want 1", name, sum)
		}
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup("")
	if err != nil || p.Name != DefaultName {
		t.Errorf("empty lookup gave %v, %v; want %s", p, err, DefaultName)
	}
	if _, err := Lookup("REC601"); err != nil {
		t.Errorf("lookup should be case insensitive: %v", err)
	}
	if _, err := Lookup("noSuchSensor"); err == nil {
		t.Errorf("lookup of unknown profile should fail")
	}
}

func TestLuminance(t *testing.T) {
	p, _ := Lookup("uniform")
	if l := p.Luminance(0.3, 0.6, 0.9); math.Abs(float64(l-0.6)) > 1e-6 {
		t.Errorf("uniform luminance=%f; want 0.6", l)
	}
	p, _ = Lookup("rec709")
	if l := p.Luminance(1, 1, 1); math.Abs(float64(l-1)) > 1e-3 {
		t.Errorf("rec709 luminance of white=%f; want 1", l)
	}
}
