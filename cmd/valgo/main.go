package main

import (
	"os"

	"github.com/zurustar/valgo/pkg/app"
)

func main() {
	application := app.New(os.Stdout, os.Stderr)
	os.Exit(application.Run(os.Args[1:]))
}
