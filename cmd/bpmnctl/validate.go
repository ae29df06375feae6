package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/bpmn"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Report gateways that are not preceded by a decision task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0])
			if err != nil {
				return err
			}
			d, err := a.codec().Parse(text)
			if err != nil {
				return err
			}
			vs := (&bpmn.Validator{Logger: a.log}).Validate(d)
			w := cmd.OutOrStdout()
			if a.jsonOutput {
				if vs == nil {
					vs = []bpmn.Violation{}
				}
				if err := printJSON(w, vs); err != nil {
					return err
				}
			} else if len(vs) == 0 {
				fmt.Fprintln(w, "valid")
			} else {
				for _, v := range vs {
					fmt.Fprintf(w, "%s: %s\n", v.GatewayID, v.Reason)
				}
			}
			if len(vs) > 0 {
				return fmt.Errorf("%d violation(s)", len(vs))
			}
			return nil
		},
	}
}
