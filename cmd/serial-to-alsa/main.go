// Command serial-to-alsa copies MIDI messages from a serial port to a
// system MIDI output with a bounded frame buffer between the two.
package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "serial-to-alsa: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "Try 'serial-to-alsa --help' for more information.")
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}
