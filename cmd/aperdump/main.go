// Command aperdump decodes a PER-encoded file against a descriptor
// registered by name and prints the resulting Go value. It exists to
// exercise lib/registry and lib/per/aper from outside a test binary, not
// as a replacement for the descriptor compiler that produces descriptors
// in the first place.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thebagchi/aper/lib/per/aper"
	"github.com/thebagchi/aper/lib/registry"
)

func main() {
	var (
		filename = flag.String("file", "", "path to a PER-encoded message")
		name     = flag.String("name", "", "registered descriptor name")
		aligned  = flag.Bool("aligned", true, "ALIGNED (true) or UNALIGNED (false) PER")
		list     = flag.Bool("list", false, "list registered descriptor names and exit")
	)
	flag.Parse()

	for _, desc := range demoDescriptors() {
		registry.MustRegister(desc)
	}

	if *list {
		for _, desc := range demoDescriptors() {
			fmt.Println(desc.Name)
		}
		return
	}

	if len(*filename) == 0 || len(*name) == 0 {
		fmt.Fprintln(os.Stderr, "aperdump: -file and -name are required (or pass -list)")
		os.Exit(2)
	}

	desc, ok := registry.Get(*name)
	if !ok {
		fmt.Fprintf(os.Stderr, "aperdump: no descriptor registered as %q\n", *name)
		os.Exit(1)
	}

	data, err := os.ReadFile(*filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aperdump: %v\n", err)
		os.Exit(1)
	}

	value, err := aper.Decode(desc, data, aper.WithAligned(*aligned))
	if err != nil {
		fmt.Fprintf(os.Stderr, "aperdump: decode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%+v\n", value)
}
