// Command demo drives the creature machine tree from the command line.
//
//	demo run --ticks 600
//	demo run --realtime --listen :8080
//	demo graph --ticks 120 --format json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
