package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// fatal prints err to standard error, in the teacher's red-error-prefix
// style, and terminates the process with a failure exit code.
func fatal(err error) {
	fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
	os.Exit(1)
}

var rootCommand = &cobra.Command{
	Use:   "taskstate-demo",
	Short: "taskstate-demo drives the task incremental-execution engine from the command line",
	Run: func(command *cobra.Command, arguments []string) {
		command.Help()
	},
}

func init() {
	cobra.EnableCommandSorting = false
	rootCommand.AddCommand(runCommand, inspectCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
