package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"streamlance.app/internal/config"
	"streamlance.app/internal/storage"
	"streamlance.app/internal/validator"
)

var setPreferencesCmd = cobra.Command{
	Use:   "set-preferences email category...",
	Short: "Replace categories a user subscribed to",
	Example: `
$ streamlance set-preferences jane@example.com "Web Development" "AI/ML & Data Science"
`,
	Args: cobra.MinimumNArgs(2),

	RunE: func(cmd *cobra.Command, args []string) error {
		tax, err := loadTaxonomy()
		if err != nil {
			return err
		}

		categories, err := validator.ValidatePreferences(tax, args[1:],
			config.Opts.MaxPreferences())
		if err != nil {
			return err
		}

		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				user, err := userByEmail(ctx, store, args[0])
				if err != nil {
					return err
				}

				err = store.ReplacePreferences(ctx, user.ID, categories)
				if err != nil {
					return err
				}
				slog.Info("Preferences updated", slog.Int64("user_id", user.ID),
					slog.Any("categories", categories))
				return nil
			})
	},
}

var preferencesCmd = cobra.Command{
	Use:   "preferences email",
	Short: "Show categories a user subscribed to",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				user, err := userByEmail(ctx, store, args[0])
				if err != nil {
					return err
				}

				categories, err := store.Preferences(ctx, user.ID)
				if err != nil {
					return err
				}
				printLines(cmd.OutOrStdout(), categories)
				return nil
			})
	},
}

var categoriesCmd = cobra.Command{
	Use:   "categories",
	Short: "List categories users can subscribe to",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		tax, err := loadTaxonomy()
		if err != nil {
			return err
		}
		printLines(cmd.OutOrStdout(), tax.Names())
		return nil
	},
}

func printLines(w io.Writer, lines []string) {
	for _, s := range lines {
		fmt.Fprintln(w, s)
	}
}
