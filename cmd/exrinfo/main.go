// Command exrinfo prints the shape and channels of an image, or exports
// its color channels as an 8-bit image.
//
//	exrinfo shape descriptors.exr
//	exrinfo ls-channels descriptors.exr
//	exrinfo export -o preview.png descriptors.exr
package main

import (
	"flag"
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s shape|ls-channels <path>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s export -o <output> <path>\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, rest := os.Args[1], os.Args[2:]

	switch cmd {
	case "shape", "ls-channels":
		if len(rest) != 1 {
			usage()
			os.Exit(1)
		}
		path := rest[0]
		var (
			info  imageInfo
			names []string
			err   error
		)
		if isExr(path) {
			info, names, err = readExrInfo(path)
		} else if cmd == "ls-channels" {
			err = fmt.Errorf("%s: channel names are only stored in OpenEXR files", path)
		} else {
			info, err = readImageInfo(path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if cmd == "shape" {
			fmt.Printf("width: %d\n", info.Width)
			fmt.Printf("height: %d\n", info.Height)
			fmt.Printf("channels: %d\n", info.Channels)
			fmt.Printf("dtype: %s\n", info.Depth)
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		out := fs.String("o", "", "Path of the exported image")
		fs.StringVar(out, "output", "", "Path of the exported image")
		fs.Parse(rest)
		if *out == "" || fs.NArg() != 1 {
			usage()
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Exporting %s to %s\n", fs.Arg(0), *out)
		if err := exportRGB(fs.Arg(0), *out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
}
