// Command signed-doc builds, inspects and validates Catalyst signed
// documents from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "signed-doc",
		Short:         "Build, inspect and validate Catalyst signed documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newKeygenCmd(),
		newBuildCmd(),
		newInspectCmd(),
		newValidateCmd(),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "signed-doc:", err)
		os.Exit(1)
	}
}
