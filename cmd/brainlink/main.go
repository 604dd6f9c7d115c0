// brainlink keeps a WebSocket session to the brain endpoint alive and renders
// its status, errors and rolling log on the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/brainlink/internal/version"
)

const helloMessage = "Jane is here. Your jewel in the ear."

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "brainlink",
		Short:         "brainlink: resilient WebSocket link to the brain endpoint",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		connectCmd(),
		helloCmd(),
		versionCmd(),
	)
	return root
}

func helloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Print the greeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), helloMessage)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
}
