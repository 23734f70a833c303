// Command cdibase queries CDI snapshot records with ad-hoc filters and
// exports them as CSV reports.
package main

import (
	"fmt"
	"os"

	"github.com/asaidimu/go-cdibase/config"
)

func main() {
	a := &app{v: config.New()}
	err := newRootCommand(a).Execute()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
