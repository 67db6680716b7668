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
	"testing"

	"github.com/valyala/fastrand"
)

func TestHyperbolicStretchFixedPoints(t *testing.T) {
	ds := []float64{0.1, 1, 100, 1e5, 1e7}
	bs := []float64{0.1, 1, 6, 15}
	sps := []float64{0, 0.1, 0.25}
	for _, d := range ds {
		for _, b := range bs {
			for _, sp := range sps {
				if v := HyperbolicStretch(sp, d, b, sp); math.Abs(v) > 1e-9 {
					t.Errorf("d=%g b=%g sp=%g: stretch(sp)=%g; want 0", d, b, sp, v)
				}
			}
			if v := HyperbolicStretch(1, d, b, 0); math.Abs(v-1) > 1e-9 {
				t.Errorf("d=%g b=%g: stretch(1)=%g; want 1", d, b, v)
			}
		}
	}
}

func TestHyperbolicStretchMonotonic(t *testing.T) {
	for _, d := range []float64{1, 100, 1e4} {
		for _, b := range []float64{0.1, 6, 15} {
			prev := math.Inf(-1)
			for v := 0.0; v <= 1.0; v += 0.001 {
				s := HyperbolicStretch(v, d, b, 0)
				if s < prev {
					t.Fatalf("d=%g b=%g: stretch(%g)=%g < previous %g", d, b, v, s, prev)
				}
				prev = s
			}
		}
	}
}

func TestHyperbolicStretchClampsParameters(t *testing.T) {
	// D and b below 0.1 are floored, so these calls must agree
	if HyperbolicStretch(0.3, 0.01, 0.01, 0) != HyperbolicStretch(0.3, 0.1, 0.1, 0) {
		t.Errorf("sub-minimal D and b not clamped to 0.1")
	}
}

func TestApplyMTF(t *testing.T) {
	for _, m := range []float64{0.01, 0.25, 0.5, 0.99} {
		if v := ApplyMTF(0, m); v != 0 {
			t.Errorf("m=%g: mtf(0)=%g; want 0", m, v)
		}
		if v := ApplyMTF(1, m); v != 1 {
			t.Errorf("m=%g: mtf(1)=%g; want 1", m, v)
		}
	}
	for _, v := range []float64{0.1, 0.25, 0.5, 0.9} {
		if got := ApplyMTF(v, 0.5); math.Abs(got-v) > 1e-12 {
			t.Errorf("mtf(%g, 0.5)=%g; want identity", v, got)
		}
	}
	// brightening midtones balance lifts a midtone value
	if got := ApplyMTF(0.25, 0.1); got <= 0.25 {
		t.Errorf("mtf(0.25, 0.1)=%g; want > 0.25", got)
	}
}

func TestSolveMTFBalance(t *testing.T) {
	for _, bg := range []float64{0.001, 0.05, 0.3, 0.7} {
		for _, target := range []float64{0.1, 0.16, 0.25, 0.5} {
			m := SolveMTFBalance(bg, target)
			if got := ApplyMTF(bg, m); math.Abs(got-target) > 1e-9 {
				t.Errorf("bg=%g target=%g m=%g: mtf=%g; want target", bg, target, m, got)
			}
		}
	}
}

func TestSolveLogDDegenerate(t *testing.T) {
	if got := SolveLogD(0, 0.25, 6); got != 2.0 {
		t.Errorf("solveLogD(0)=%g; want 2.0", got)
	}
	if got := SolveLogD(1e-12, 0.25, 6); got != 2.0 {
		t.Errorf("solveLogD(1e-12)=%g; want 2.0", got)
	}
}

func TestSolveLogDRoundTrip(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(42)
	rnd := func() float64 { return float64(rng.Uint32n(1000000)) / 1000000.0 }

	tested := 0
	for i := 0; i < 1000; i++ {
		medianIn := 0.001 + 0.998*rnd()
		target := 0.001 + 0.998*rnd()
		b := 0.1 + 14.9*rnd()

		// skip targets outside the reach of logD in [0,7]
		lo := HyperbolicStretch(medianIn, 1, b, 0)
		hi := HyperbolicStretch(medianIn, 1e7, b, 0)
		if target <= lo+1e-3 || target >= hi-1e-3 {
			continue
		}

		logD := SolveLogD(medianIn, target, b)
		got := HyperbolicStretch(medianIn, math.Pow(10, logD), b, 0)
		if math.Abs(got-target) > 1e-3 {
			t.Errorf("medianIn=%g target=%g b=%g: logD=%g stretches to %g", medianIn, target, b, logD, got)
		}
		tested++
	}
	if tested < 100 {
		t.Errorf("only %d feasible random cases; want at least 100", tested)
	}
}

func TestSoftClip(t *testing.T) {
	// pass-through below the threshold
	for _, v := range []float64{0, 0.25, 0.5, 0.98} {
		if got := SoftClip(v, 0.98, 2.0); got != v {
			t.Errorf("softClip(%g)=%g; want pass-through", v, got)
		}
	}
	// smooth shoulder above it, bounded by 1
	if got := SoftClip(1, 0.98, 2.0); math.Abs(got-1) > 1e-9 {
		t.Errorf("softClip(1)=%g; want 1", got)
	}
	prev := 0.98
	for v := 0.98; v <= 1.0; v += 0.001 {
		got := SoftClip(v, 0.98, 2.0)
		if got < prev || got > 1 {
			t.Fatalf("softClip(%g)=%g not monotonic in (prev %g, 1]", v, got, prev)
		}
		prev = got
	}
	// values beyond 1 stay capped at 1
	if got := SoftClip(1.5, 0.98, 2.0); got > 1 {
		t.Errorf("softClip(1.5)=%g; want <= 1", got)
	}
}
