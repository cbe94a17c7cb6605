package main

import (
	"context"
	"fmt"
	"os"

	// Embedded zone database so timezone names resolve on hosts without one.
	_ "time/tzdata"

	"github.com/nhle/todoapp/internal/cli"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := cli.NewRootCmd(Version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
