package main

import (
	"os"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	if err := RootCmd().Execute(); err != nil {
		exitCode = 1
	}
}
