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

package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ptrenker/hymstretch/internal/ops"
	"github.com/ptrenker/hymstretch/internal/ops/starmask"
	"github.com/ptrenker/hymstretch/internal/ops/stretch"
)

func Serve(port int) {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/stretch", postStretch)
			v1.POST("/compose", postCompose)
		}
	}
	r.Run(fmt.Sprintf(":%d", port))
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Switches the response to a streaming text/plain log and returns it as
// the operator context log sink
func streamingLog(c *gin.Context) io.Writer {
	logWriter := c.Writer
	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)
	return logWriter
}

type postStretchArgs struct {
	FilePatterns []string               `json:"filePatterns"`
	Stretch      *stretch.OpHyperStretch `json:"stretch"`
	SavePattern  string                 `json:"savePattern"`
}

func postStretch(c *gin.Context) {
	var args postStretchArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Stretch == nil {
		args.Stretch = stretch.NewOpHyperStretchDefault()
	}

	logWriter := streamingLog(c)
	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx := ops.NewContext(logWriter)
	seq := ops.NewOpSequence(
		ops.NewOpLoadMany(args.FilePatterns),
		ops.NewOpForEach(args.Stretch),
		ops.NewOpForEach(ops.NewOpSave(args.SavePattern)),
	)
	promises, err := seq.MakePromises(nil, ctx)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	if _, err = ctx.MaterializeAll(promises, true); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()
}

type postComposeArgs struct {
	StarFile    string                  `json:"starFile"`
	BaseFile    string                  `json:"baseFile"`
	Stretch     *stretch.OpHyperStretch `json:"stretch"`
	LSR         float32                 `json:"lsr"`
	Healing     float32                 `json:"healing"`
	Reduction   float32                 `json:"reduction"`
	Mode        string                  `json:"mode"`
	SavePattern string                  `json:"savePattern"`
}

func postCompose(c *gin.Context) {
	var args postComposeArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Mode == "" {
		args.Mode = starmask.ComposeScreen
	}

	logWriter := streamingLog(c)
	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx := ops.NewContext(logWriter)
	starPromises, err := ops.NewOpLoad(0, args.StarFile).MakePromises(nil, ctx)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	basePromises, err := ops.NewOpLoad(1, args.BaseFile).MakePromises(nil, ctx)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}

	// stars are optionally stretched, then repaired, then composed onto
	// the already stretched base
	starSeq := ops.NewOpSequence()
	if args.Stretch != nil {
		starSeq.Append(args.Stretch)
	}
	starSeq.Append(starmask.NewOpStarSurgery(args.LSR, args.Healing, args.Reduction))
	if starPromises, err = starSeq.MakePromises(starPromises, ctx); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}

	compose := starmask.NewOpCompose(args.Mode)
	outs, err := compose.MakePromises(append(starPromises, basePromises...), ctx)
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	if outs, err = ops.NewOpSave(args.SavePattern).MakePromises(outs, ctx); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	if _, err = ctx.MaterializeAll(outs, true); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()
}
