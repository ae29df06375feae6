package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/bpmn"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <file>",
		Short: "List the tasks and gateways of a process",
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
			s := bpmn.Summarize(d)
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), s)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tDETAIL")
			for _, t := range s.Tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Type, t.Name, taskDetail(t))
			}
			for _, g := range s.Gateways {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID, g.Type, g.Name, g.Direction)
			}
			return tw.Flush()
		},
	}
}

func taskDetail(t bpmn.TaskSummary) string {
	var parts []string
	if t.FormKey != "" {
		parts = append(parts, "form="+t.FormKey)
	}
	if t.Delegate != "" {
		parts = append(parts, "delegate="+t.Delegate)
	}
	if t.Decision != nil {
		parts = append(parts, "decision="+t.Decision.Ref)
	}
	return strings.Join(parts, " ")
}
