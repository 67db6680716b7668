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

// Package sensor holds per-camera luminance weighting profiles.
package sensor

import (
	"fmt"
	"sort"
	"strings"
)

// A sensor profile with the channel weights used to form the luminance
// signal during stretching. Weights are normalized to sum to one
type Profile struct {
	Name    string  `json:"name"`
	WeightR float32 `json:"weightR"`
	WeightG float32 `json:"weightG"`
	WeightB float32 `json:"weightB"`
}

// The default profile used when none is given
const DefaultName = "rec709"

var profiles = map[string]Profile{
	"uniform": {"uniform", 1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0},
	"rec601":  {"rec601", 0.299, 0.587, 0.114},
	"rec709":  {"rec709", 0.2126, 0.7152, 0.0722},
	"imx571":  {"imx571", 0.2570, 0.5870, 0.1560},
	"imx533":  {"imx533", 0.2595, 0.5783, 0.1622},
	"imx294":  {"imx294", 0.2730, 0.5610, 0.1660},
}

// Returns the profile of the given name, or an error listing the
// available profiles. The empty name selects the default profile
func Lookup(name string) (Profile, error) {
	if name == "" {
		name = DefaultName
	}
	if p, ok := profiles[strings.ToLower(name)]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("unknown sensor profile %q, have %s", name, strings.Join(Names(), ", "))
}

// Returns the names of all known profiles in alphabetical order
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Computes the luminance of a single RGB triple under this profile
func (p Profile) Luminance(r, g, b float32) float32 {
	return p.WeightR*r + p.WeightG*g + p.WeightB*b
}
