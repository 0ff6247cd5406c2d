package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/aciclean/internal/ansible"
	"github.com/HerbHall/aciclean/internal/apic"
	"github.com/HerbHall/aciclean/internal/purge"
)

func (a *app) newAnsibleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ansible <args-file>",
		Short: "Run as an Ansible binary module",
		Long: `Reads module arguments (apic, username, password, tenant, app_profile, epg,
validate_certs, ca_file, timeout) from the JSON file Ansible passes and prints
the module result as one JSON object. Check mode lists without deleting.

The binary also runs in this mode when invoked as ` + ansibleModuleName + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.ansibleResult(cmd.Context(), args[0])
			if err := ansible.Write(a.stdout, res); err != nil {
				return failureError(err)
			}
			if res.Failed {
				return &exitError{code: exitFailure, silent: true}
			}
			return nil
		},
	}
}

func (a *app) ansibleResult(ctx context.Context, path string) ansible.Result {
	f, err := os.Open(path) //nolint:gosec // G304: path supplied by Ansible
	if err != nil {
		return ansible.Fail(fmt.Sprintf("read module arguments: %v", err))
	}
	defer f.Close()

	params, err := ansible.ParseArgs(f)
	if err != nil {
		return ansible.Fail(err.Error())
	}
	client, err := apic.NewClient(params.ClientConfig(), a.logger.Named("apic"))
	if err != nil {
		return ansible.Fail(err.Error())
	}

	logger := a.logger.Named("purge").With(zap.Bool("check_mode", params.CheckMode))
	r, runErr := purge.New(logger, purge.WithDryRun(params.CheckMode)).
		Execute(ctx, client, params.Credentials(), params.Scope())
	return ansible.NewResult(r, runErr)
}
