package config

import (
	"fmt"
	"os"
)

// Exitf prints a formatted message to stderr and exits the process with a
// non-zero status. Entry points use it for unrecoverable startup errors.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
