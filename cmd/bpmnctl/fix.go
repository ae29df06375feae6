package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/bpmn"
)

func newFixCmd(a *app) *cobra.Command {
	var out, formsDir string
	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Insert decision user tasks before offending gateways",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0])
			if err != nil {
				return err
			}
			codec := a.codec()
			d, err := codec.Parse(text)
			if err != nil {
				return err
			}
			fixer := &bpmn.AutoFixer{Layout: a.cfg.Layout, Logger: a.log}
			report, fixErr := fixer.Fix(cmd.Context(), d)

			xml, err := codec.Serialize(d)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), out, xml); err != nil {
				return err
			}
			if formsDir != "" {
				if err := writeForms(formsDir, report); err != nil {
					return err
				}
			}

			w := cmd.ErrOrStderr()
			if a.jsonOutput {
				if err := printJSON(w, report); err != nil {
					return err
				}
			} else {
				for _, f := range report.Fixed {
					fmt.Fprintf(w, "fixed %s: inserted %s (form %s)\n", f.GatewayID, f.UserTaskID, f.FormKey)
				}
				for _, f := range report.Failed {
					fmt.Fprintf(w, "failed %s: %s\n", f.GatewayID, f.Reason)
				}
			}
			return fixErr
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&formsDir, "forms-dir", "", "also write each generated form as <key>.json")
	return cmd
}

func writeForms(dir string, report *bpmn.FixReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range report.Fixed {
		data, err := f.Form.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, f.FormKey+".json"), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
