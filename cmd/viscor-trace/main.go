// Command viscor-trace browses precomputed correspondence volumes: every
// directory under the trace root holding a 4-axis layout.json and one
// slice file per source cell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/wbrown/viscor"
	"github.com/wbrown/viscor/imageutil"
)

func main() {
	var (
		fix01   bool
		alpha   float64
		cols    int
		panel   int
		verbose bool
	)
	flag.BoolVar(&fix01, "01", false, "Fix the color scale to [0, 1]")
	flag.BoolVar(&fix01, "fix-01-scale", false, "Fix the color scale to [0, 1]")
	flag.Float64Var(&alpha, "a", viscor.DefaultAlpha, "Initial heatmap alpha in [0, 1]")
	flag.Float64Var(&alpha, "heatmap-alpha", viscor.DefaultAlpha, "Initial heatmap alpha in [0, 1]")
	flag.IntVar(&cols, "width", viscor.DefaultColumns, "Terminal width in characters")
	flag.IntVar(&panel, "panel", 480, "Width of each image panel in pixels")
	flag.BoolVar(&verbose, "v", false, "Log every recomputation")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] trace-dir image0 image1\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}
	if alpha < 0 || alpha > 1 {
		fmt.Fprintf(os.Stderr, "heatmap alpha must be in [0, 1], got %v\n", alpha)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := viscor.NewTextLogger(os.Stderr, level)

	args := flag.Args()
	trace, err := viscor.OpenTraceDir(args[0])
	if err != nil {
		fatalf("Error opening trace %s: %v", args[0], err)
	}
	image0, err := imageutil.LoadImage(args[1])
	if err != nil {
		fatalf("Error loading image: %v", err)
	}
	image1, err := imageutil.LoadImage(args[2])
	if err != nil {
		fatalf("Error loading image: %v", err)
	}
	for i, name := range trace.Names {
		fmt.Printf("volume %d: %s\n", i, name)
	}

	policy := viscor.ScaleAuto
	if fix01 {
		policy = viscor.ScaleFixed01
	}
	inspector := viscor.NewInspector(trace,
		viscor.WithScalePolicy(policy),
		viscor.WithAlpha(alpha),
		viscor.WithLogger(logger),
	)
	session := viscor.NewSession(inspector,
		viscor.NewComposer(image0, image1, panel),
		os.Stdout,
		viscor.WithColumns(cols),
		viscor.WithSessionLogger(logger),
		viscor.WithVolumeNames(trace.Names),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := session.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		fatalf("Error: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
