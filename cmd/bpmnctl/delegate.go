package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/bpmn/delegate"
)

func newDelegateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Work with Java delegate sources",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <class> <file>",
		Short: "Check that a source file declares the named delegate class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(args[1])
			if err != nil {
				return err
			}
			meta, err := delegate.Inspect(args[0], src)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), meta)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Class:    %s\n", meta.ClassName)
			fmt.Fprintf(cmd.OutOrStdout(), "Package:  %s\n", meta.Package)
			fmt.Fprintf(cmd.OutOrStdout(), "Simple:   %s\n", meta.SimpleName)
			return nil
		},
	})
	return cmd
}
