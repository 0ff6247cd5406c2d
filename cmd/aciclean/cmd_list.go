package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HerbHall/aciclean/internal/apic"
	"github.com/HerbHall/aciclean/internal/purge"
	"github.com/HerbHall/aciclean/internal/report"
)

func (a *app) newListCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the learned endpoints of an EPG without deleting them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runList(cmd.Context(), output)
		},
	}
	addControllerFlags(cmd.Flags())
	addScopeFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", report.FormatText, "output format: text or json")
	return cmd
}

func (a *app) runList(ctx context.Context, output string) error {
	if output != report.FormatText && output != report.FormatJSON {
		return usageError(fmt.Errorf("unknown output format %q", output))
	}
	s, err := a.settings()
	if err != nil {
		return err
	}
	client, err := apic.NewClient(s.ClientConfig(), a.logger.Named("apic"))
	if err != nil {
		return usageError(err)
	}
	creds, err := a.credentials(s)
	if err != nil {
		return err
	}

	// A dry run lists through the same login/query/logout path as purge.
	r, err := purge.New(a.logger.Named("purge"), purge.WithDryRun(true)).Execute(ctx, client, creds, s.Scope)
	if err != nil {
		return failureError(err)
	}
	if err := report.WriteList(a.stdout, r.Attempted, output); err != nil {
		return failureError(err)
	}
	return nil
}
