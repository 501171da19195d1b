// Command valobj validates value-object contracts, inspects their shapes and
// synthesizes or generates the value types that implement them.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
