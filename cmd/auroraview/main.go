package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	handled, err := runPackedIfDetected(context.Background())
	if handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, red("error: "+err.Error()))
			os.Exit(1)
		}
		return
	}

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error: "+err.Error()))
		os.Exit(1)
	}
}
