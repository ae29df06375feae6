package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/internal/config"
)

type app struct {
	jsonOutput bool
	cfg        *config.Config
	log        *slog.Logger
}

func (a *app) codec() *bpmn.Codec {
	return bpmn.NewCodec(a.cfg.Layout, a.log)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "bpmnctl",
		Short:         "Create, check and repair BPMN and DMN files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output as JSON")

	root.AddCommand(newNewCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newFixCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newDMNCmd(a))
	root.AddCommand(newDelegateCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
