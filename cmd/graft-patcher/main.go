// Command graft-patcher is a self-contained patch applier: the compressed
// bundle it applies is embedded at build time rather than read from disk,
// so it can be handed to an end user as a single binary.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/sam-mfb/graft/pkg/engine"
	"github.com/sam-mfb/graft/pkg/patcher"
)

func main() {
	assumeYes := flag.Bool("y", false, "apply without confirmation")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-y] <target_dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	targetDir := flag.Arg(0)

	if !*assumeYes && !confirm(targetDir) {
		fmt.Println("aborted")
		os.Exit(1)
	}

	reporter := engine.ReporterFunc(func(e engine.Event) {
		if e.File == "" {
			fmt.Printf("%s\n", e.Phase)
			return
		}
		fmt.Printf("%s %s: %s\n", e.Phase, e.Action, e.File)
	})

	if err := patcher.Run(embeddedArchive, targetDir, reporter); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func confirm(targetDir string) bool {
	fmt.Printf("apply embedded patch to %s? [y/N] ", targetDir)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return line == "y\n" || line == "Y\n" || line == "yes\n"
}
