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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/ptrenker/hymstretch/internal/logf"
	"github.com/ptrenker/hymstretch/internal/ops"
	"github.com/ptrenker/hymstretch/internal/ops/starmask"
	"github.com/ptrenker/hymstretch/internal/ops/stretch"
	"github.com/ptrenker/hymstretch/internal/rest"
)

const version = "0.1.2"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "out.fits", "save output to `file`. %d is replaced by the input image id")
var jpg = flag.String("jpg", "%auto", "save 8bit preview of output as JPEG to `file`. `%auto` replaces suffix of output file with .jpg")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var profile = flag.String("profile", "rec709", "sensor profile for luminance weights, one of uniform, rec601, rec709, imx571, imx533, imx294")
var logD = flag.Float64("logD", 4.0, "stretch strength as natural log of the hyperbolic distortion, in [0,7]")
var protectB = flag.Float64("protectB", 6.0, "highlight protection, higher values preserve more highlight detail, in [0.1,15]")
var convergence = flag.Float64("convergence", 2.0, "speed at which bright pixels converge to pure luminance, in [1,10]")
var colorGrip = flag.Float64("colorGrip", 1.0, "blend between color-preserving and per-channel stretch, 1=full color preservation, in [0,1]")
var shadowConv = flag.Float64("shadowConvergence", 0.0, "desaturate shadows by weakening the color grip for dim pixels, 0=off, in [0,3]")
var adaptiveAnchor = flag.Bool("adaptiveAnchor", false, "find the black anchor from the histogram peak instead of the channel medians")
var mode = flag.String("mode", stretch.ModeReadyToUse, "stretch mode, ready_to_use adds range expansion and soft clip, scientific stretches only")
var targetBg = flag.Float64("targetBackground", 0.16, "median background level after range expansion, in (0,1)")
var pedestal = flag.Bool("pedestal", true, "add a small pedestal to keep faint signal above zero")

var lsr = flag.Float64("lsr", 0, "large-scale structure rejection intensity for star masks, 0=off, in [0,1]")
var heal = flag.Float64("heal", 0, "optics healing strength for star masks, suppresses chroma fringes, 0=off, in [0,20]")
var reduce = flag.Float64("reduce", 0, "star reduction intensity via morphological erosion, 0=off, in [0,1]")

var base = flag.String("base", "", "recombine star mask with the stretched starless base image from `file`")
var composeMode = flag.String("composeMode", starmask.ComposeScreen, "star recombination mode, one of screen, linearAdd")

var port = flag.Int("port", 8080, "port number for the HTTP server")
var chroot = flag.String("chroot", "", "directory to chroot into before serving, requires root")
var setuid = flag.Int("setuid", -1, "user id to switch to before serving, -1=keep")

func main() {
	logWriter := logf.Writer()
	debug.SetGCPercent(10)
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Hymstretch Copyright (c) 2023 Peter Trenker
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (stretch|stars|serve|legal|version) (img0.fits ... imgn.fits)

Commands:
  stretch Stretch linear input images with the generalized hyperbolic transform
  stars   Stretch a star mask, apply star surgery and recombine with a stretched base
  serve   Run a HTTP server for remote stretching
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		if err := logf.AlsoToFile(*log); err != nil {
			logf.Fatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Also auto-select JPEG output target
	if *jpg == "%auto" {
		if *out != "" {
			*jpg = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".jpg"
		} else {
			*jpg = ""
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logf.Fatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logf.Fatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "stretch":
		err = cmdStretch(args[1:])

	case "stars":
		err = cmdStars(args[1:])

	case "serve":
		rest.MakeSandbox(*chroot, *setuid)
		rest.Serve(*port)

	case "legal":
		cmdLegal()

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed := time.Now().Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			logf.Fatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			logf.Fatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
	logf.Sync()
}

// Builds the stretch operator from the command line flags
func opStretchFromFlags(addPedestal bool) *stretch.OpHyperStretch {
	return stretch.NewOpHyperStretch(*profile, float32(*logD), float32(*protectB), float32(*convergence),
		float32(*colorGrip), float32(*shadowConv), *adaptiveAnchor, *mode, float32(*targetBg), addPedestal)
}

// Stretches each input image and saves FITS and JPEG outputs
func cmdStretch(args []string) error {
	c := ops.NewContext(logf.Writer())

	opSeq := ops.NewOpSequence(
		ops.NewOpLoadMany(args),
		ops.NewOpForEach(opStretchFromFlags(*pedestal)),
		ops.NewOpForEach(ops.NewOpSave(*out)),
		ops.NewOpForEach(ops.NewOpSave(*jpg)),
	)

	m, err := json.MarshalIndent(opSeq, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "\nStretching with these settings:\n%s\n", string(m))

	promises, err := opSeq.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = c.MaterializeAll(promises, true)
	return err
}

// Stretches a star mask, applies star surgery and optionally recombines it
// with an already stretched starless base image
func cmdStars(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("need exactly one star mask input, have %d", len(args))
	}
	c := ops.NewContext(logf.Writer())

	// star masks never get a pedestal, it would lift the empty sky
	opSeq := ops.NewOpSequence(
		opStretchFromFlags(false),
		starmask.NewOpStarSurgery(float32(*lsr), float32(*heal), float32(*reduce)),
		stretch.NewOpSoftClipDefault(),
	)

	m, err := json.MarshalIndent(opSeq, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "\nProcessing star mask with these settings:\n%s\n", string(m))

	promises, err := ops.NewOpLoad(0, args[0]).MakePromises(nil, c)
	if err != nil {
		return err
	}
	promises, err = opSeq.MakePromises(promises, c)
	if err != nil {
		return err
	}

	if *base != "" {
		basePromises, err := ops.NewOpLoad(1, *base).MakePromises(nil, c)
		if err != nil {
			return err
		}
		promises, err = starmask.NewOpCompose(*composeMode).MakePromises(append(promises, basePromises...), c)
		if err != nil {
			return err
		}
	}

	promises, err = ops.NewOpSave(*out).MakePromises(promises, c)
	if err != nil {
		return err
	}
	promises, err = ops.NewOpSave(*jpg).MakePromises(promises, c)
	if err != nil {
		return err
	}
	_, err = c.MaterializeAll(promises, true)
	return err
}
