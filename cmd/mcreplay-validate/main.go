// Command mcreplay-validate opens one or more .mcreplay container files and
// reports whether each is well-formed, plus a packet count breakdown per
// type -- a direct descendant of the teacher's cmd/mcpr-validate, adapted
// to this format's own header/trailer shape and state-bearing packet set.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/reallyoldfogie/mcreplay/container"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <replay.mcreplay> [replay2.mcreplay ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Validates mcreplay container files.\n\nOptions:\n")
		flag.PrintDefaults()
	}

	verbose := flag.Bool("v", false, "Verbose output: print per-packet-type counts")
	quiet := flag.Bool("q", false, "Quiet mode: errors only")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	exitCode := 0
	for _, file := range flag.Args() {
		if err := validateOne(file, *verbose, *quiet); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", filepath.Base(file), err)
			exitCode = 1
			continue
		}
	}
	os.Exit(exitCode)
}

func validateOne(path string, verbose, quiet bool) error {
	reader, err := container.Open(path)
	if err != nil {
		return err
	}
	packets, err := reader.Packets()
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("OK %s: %d packets, bot=%q, span=%dms\n",
			filepath.Base(path), len(packets), reader.Meta.BotUsername,
			reader.Meta.EndTime-reader.Meta.StartTime)
	}

	if verbose {
		counts := make(map[string]int)
		for _, p := range packets {
			counts[p.Name]++
		}
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-24s %d\n", name, counts[name])
		}
	}
	return nil
}
