package cli // import "streamlance.app/internal/cli"

import (
	"context"
	"fmt"
	"io"
	"maps"
	"runtime"
	"slices"

	"github.com/spf13/cobra"

	"streamlance.app/internal/storage"
	"streamlance.app/internal/version"
)

var flagInfoDB bool

var infoCmd = cobra.Command{
	Use:   "info",
	Short: "Show build information",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		info(w)
		if !flagInfoDB {
			return nil
		}
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				return databaseInfo(ctx, w, store)
			})
	},
}

func init() {
	infoCmd.Flags().BoolVar(&flagInfoDB, "db", false,
		"Show database information too")
}

func info(w io.Writer) {
	fmt.Fprintln(w, "Version:", version.Version)
	fmt.Fprintln(w, "Commit:", version.Commit)
	fmt.Fprintln(w, "Build Date:", version.BuildDate)
	fmt.Fprintln(w, "Go Version:", runtime.Version())
	fmt.Fprintln(w, "Compiler:", runtime.Compiler)
	fmt.Fprintln(w, "Arch:", runtime.GOARCH)
	fmt.Fprintln(w, "OS:", runtime.GOOS)
}

func databaseInfo(ctx context.Context, w io.Writer, store *storage.Storage,
) error {
	current, latest, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	size, err := store.DBSize(ctx)
	if err != nil {
		return err
	}

	users, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}

	brokenFeeds, err := store.CountFeedsWithErrors(ctx)
	if err != nil {
		return err
	}

	sent, err := store.CountSentNotifications(ctx)
	if err != nil {
		return err
	}

	postings, err := store.CountPostings(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Database Version:", store.DatabaseVersion(ctx))
	fmt.Fprintf(w, "Schema Version: v%d (latest v%d)\n", current, latest)
	fmt.Fprintln(w, "Database Size:", size)
	fmt.Fprintln(w, "Users:", users)
	fmt.Fprintln(w, "Feeds With Errors:", brokenFeeds)
	fmt.Fprintln(w, "Sent Notifications:", sent)
	fmt.Fprintln(w, "Postings:")
	for _, category := range slices.Sorted(maps.Keys(postings)) {
		fmt.Fprintf(w, "  %s: %d\n", category, postings[category])
	}
	return nil
}
