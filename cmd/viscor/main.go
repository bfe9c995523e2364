// Command viscor inspects the dense correspondence between two images.
// It renders image B under a similarity heatmap for the query point on
// image A and reads query moves from standard input, one per line.
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
		fmt.Fprintf(os.Stderr, "usage: %s [flags] desc0 desc1 image0 image1\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 4 {
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
	desc0, err := viscor.LoadField(args[0], viscor.WithLoadLogger(logger.WithPath(args[0])))
	if err != nil {
		fatalf("Error loading %s: %v", args[0], err)
	}
	desc1, err := viscor.LoadField(args[1], viscor.WithLoadLogger(logger.WithPath(args[1])))
	if err != nil {
		fatalf("Error loading %s: %v", args[1], err)
	}
	image0, err := imageutil.LoadImage(args[2])
	if err != nil {
		fatalf("Error loading image: %v", err)
	}
	image1, err := imageutil.LoadImage(args[3])
	if err != nil {
		fatalf("Error loading image: %v", err)
	}

	pair, err := viscor.NewFieldPair(desc0, desc1)
	if err != nil {
		fatalf("Error pairing descriptors: %v", err)
	}

	policy := viscor.ScaleAuto
	if fix01 {
		policy = viscor.ScaleFixed01
	}
	inspector := viscor.NewInspector(pair,
		viscor.WithScalePolicy(policy),
		viscor.WithAlpha(alpha),
		viscor.WithLogger(logger),
	)
	session := viscor.NewSession(inspector,
		viscor.NewComposer(image0, image1, panel),
		os.Stdout,
		viscor.WithColumns(cols),
		viscor.WithSessionLogger(logger),
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
