package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"cardfill/internal/backend"
	"cardfill/internal/cli"
	"cardfill/internal/config"
	"cardfill/internal/core"
	"cardfill/internal/log"
)

// withAdmin opens the configured store for one provisioning call.
func withAdmin(ctx context.Context, fn func(backend.Store) error) error {
	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateStorage)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend: changes are lost when the command exits")
	}
	res, err := backend.Open(ctx, cfg, logger.Logger.With(log.FieldComponent, log.ComponentBackend))
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	return fn(res.Store)
}

func newScopeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Manage chat scopes",
	}

	var (
		chatID    int64
		scopeType string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Bind a chat to a new PRIVATE or GROUP scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := core.ScopeType(strings.ToUpper(scopeType))
			if !t.IsValid() {
				return fmt.Errorf("invalid scope type %q: must be %s or %s", scopeType, core.ScopePrivate, core.ScopeGroup)
			}
			return withAdmin(cmd.Context(), func(a backend.Store) error {
				scope, err := a.CreateScope(cmd.Context(), t, chatID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scope %d (%s) bound to chat %d\n", scope.ID, scope.Type, scope.ChatID)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&chatID, "chat", 0, "telegram chat id (required)")
	_ = add.MarkFlagRequired("chat")
	add.Flags().StringVar(&scopeType, "type", string(core.ScopeGroup), "scope type: PRIVATE or GROUP")

	cmd.AddCommand(add)
	return cmd
}

func newBudgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage category budgets",
	}

	var (
		chatID int64
		code   string
		limit  string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Set a category's monthly limit in a chat's scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(limit)
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", limit, err)
			}
			return withAdmin(cmd.Context(), func(a backend.Store) error {
				scope, err := a.GetScopeByChatID(cmd.Context(), chatID)
				if err != nil {
					return fmt.Errorf("chat %d: %w", chatID, err)
				}
				if err := a.SetBudget(cmd.Context(), strings.ToUpper(code), scope.ID, amount); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "budget for %s in scope %d set to %s\n", strings.ToUpper(code), scope.ID, amount)
				return nil
			})
		},
	}
	set.Flags().Int64Var(&chatID, "chat", 0, "telegram chat id (required)")
	set.Flags().StringVar(&code, "code", "", "category code (required)")
	set.Flags().StringVar(&limit, "limit", "", "monthly limit (required)")
	for _, f := range []string{"chat", "code", "limit"} {
		_ = set.MarkFlagRequired(f)
	}

	cmd.AddCommand(set)
	return cmd
}
