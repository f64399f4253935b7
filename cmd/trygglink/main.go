package main

import (
	"context"
	"fmt"
	"os"

	"github.com/raysh454/trygglink/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRoot(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
