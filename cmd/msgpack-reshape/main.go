// Command msgpack-reshape converts a model's channel-major descriptor
// dict into the pixel-major seq blob read by viscor.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/wbrown/viscor"
)

func main() {
	output := flag.String("o", "", "Output path (.msgpack, optionally .zst or .lz4)")
	flag.StringVar(output, "output", "", "Output path (.msgpack, optionally .zst or .lz4)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s -o output input\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 || *output == "" {
		flag.Usage()
		os.Exit(1)
	}

	logger := viscor.NewTextLogger(os.Stderr, slog.LevelInfo)
	field, err := viscor.LoadField(flag.Arg(0), viscor.WithLoadLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}

	fmt.Printf("(%d, %d, %d)\n", field.H(), field.W(), field.C())
	fmt.Println(len(field.Pixels()) * 4)
	fmt.Println("float32")

	if err := viscor.SaveField(*output, field); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
}
