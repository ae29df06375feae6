package main

import (
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/bpmn"
)

func newNewCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Write a new process with a start and an end event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := bpmn.NewDocument(args[0])
			if err != nil {
				return err
			}
			xml, err := a.codec().Serialize(d)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, xml)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}
