// cmd/caparoc/main.go
package main

import (
	"fmt"
	"os"

	"github.com/tamzrod/caparoc/internal/fault"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors onto the stable fault codes (1 transport or generic,
// 2 validation, 3 verification, 4 protocol abort).
func exitCode(err error) int {
	if c := fault.Code(err); c != fault.CodeNone {
		return int(c)
	}
	return 1
}
