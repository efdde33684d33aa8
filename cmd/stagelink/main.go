package main

import (
	"context"
	"fmt"
	"os"

	"github.com/stagelink/backend/internal/app"
)

func main() {
	if err := app.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "stagelink:", err)
		os.Exit(1)
	}
}
