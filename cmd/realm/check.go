package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
	"github.com/Arthur-Pio/axelor-open-platform/internal/persistence"
)

var errNoAuthorization = errors.New("no authorization for identity")

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "verify <code>",
		Short: "Check a password read from stdin against an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer secret.Wipe()
			return withStore(cmd, opts, tenant, func(ctx context.Context, rt *runtime) error {
				accepted, err := rt.verifier.Verify(ctx, args[0], secret)
				if err != nil {
					return err
				}
				rt.audit.LogAccepted(auth.ContextWithAccepted(ctx, accepted), accepted.Code)
				return printJSON(cmd, map[string]string{"code": accepted.Code})
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant to check against")
	return cmd
}

func newAuthzCmd(opts *rootOptions) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "authz <code>",
		Short: "Print the roles resolved for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if tenant != "" {
				ctx = persistence.ContextWithTenant(ctx, tenant)
			}
			rt, err := openRuntime(ctx, opts.settings)
			if err != nil {
				return err
			}
			defer rt.Close()
			info, ok, err := rt.resolver.ResolveAuthorization(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w %q", errNoAuthorization, args[0])
			}
			return printJSON(cmd, info)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant to resolve in")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
