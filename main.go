package main

import (
	"context"
	"fmt"
	"os"

	"emailbuilder/internal/cmd"
)

func main() {
	if err := cmd.Root().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
