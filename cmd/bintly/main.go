package main

import (
	"fmt"
	"os"

	berrors "bintly/internal/errors"
)

// Exit codes: 0 success, 2 for validation and state conflicts that must not
// be retried blindly, 1 for transient failures the operator may retry.
const (
	exitOK        = 0
	exitTransient = 1
	exitFatal     = 2
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err.Error()))
		if berrors.IsFatal(err) {
			os.Exit(exitFatal)
		}
		os.Exit(exitTransient)
	}
}
