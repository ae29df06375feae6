package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/bpmn/dmn"
)

func newDMNCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dmn",
		Short: "Work with DMN decision tables",
	}

	var out, id string
	newCmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Write a new decision with one input, one output and an example rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = dmn.DecisionKey(args[0])
			}
			m, err := dmn.New(id, args[0])
			if err != nil {
				return err
			}
			xml, err := dmn.Serialize(m)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, xml)
		},
	}
	newCmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	newCmd.Flags().StringVar(&id, "id", "", "decision id (default derived from the name)")

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check the shape of a decision table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0])
			if err != nil {
				return err
			}
			m, err := dmn.Parse(text)
			if err != nil {
				return err
			}
			if err := dmn.Validate(m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s (%d rules)\n", m.Decision.ID, len(m.Decision.Table.Rules))
			return nil
		},
	}

	cmd.AddCommand(newCmd, validateCmd)
	return cmd
}
