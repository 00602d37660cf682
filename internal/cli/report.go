package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"streamlance.app/internal/config"
	"streamlance.app/internal/model"
	"streamlance.app/internal/report"
	"streamlance.app/internal/storage"
)

const timeLayout = "2006-01-02 15:04"

var (
	flagJSON     bool
	flagLookback time.Duration
)

var recommendCmd = cobra.Command{
	Use:   "recommend email",
	Short: "Show recent gigs matching preferences of a user",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		lookback := config.Opts.RecommendationLookback()
		if flagLookback > 0 {
			lookback = flagLookback
		}

		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				user, err := userByEmail(ctx, store, args[0])
				if err != nil {
					return err
				}

				postings, err := store.RecommendedPostings(ctx, user.ID,
					time.Now().Add(-lookback))
				if err != nil {
					return err
				} else if flagJSON {
					return printJSON(cmd.OutOrStdout(), postings)
				}
				return printPostings(cmd.OutOrStdout(), postings)
			})
	},
}

var statsCmd = cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				stats, err := report.New(store, nil).Stats(ctx)
				if err != nil {
					return err
				} else if flagJSON {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				return printStats(cmd.OutOrStdout(), stats)
			})
	},
}

var trendingCmd = cobra.Command{
	Use:   "trending",
	Short: "Show categories growing the most over the last two days",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		tax, err := loadTaxonomy()
		if err != nil {
			return err
		}

		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				trending, err := report.New(store, tax).Trending(ctx)
				if err != nil {
					return err
				} else if flagJSON {
					return printJSON(cmd.OutOrStdout(), trending)
				}
				return printTrending(cmd.OutOrStdout(), trending)
			})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{&recommendCmd, &statsCmd, &trendingCmd} {
		cmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON")
	}
	recommendCmd.Flags().DurationVar(&flagLookback, "lookback", 0,
		"How far back to look for gigs (default RECOMMENDATION_LOOKBACK_HOURS)")
}

func printPostings(w io.Writer, postings model.Postings) error {
	if len(postings) == 0 {
		fmt.Fprintln(w, "No matching gigs.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PUBLISHED\tCATEGORY\tBUDGET\tTITLE\tLINK")
	for _, p := range postings {
		published, budget := "N/A", "N/A"
		if p.PublishedAt != nil {
			published = p.PublishedAt.UTC().Format(timeLayout)
		}
		if p.HasBudget() {
			budget = p.Budget()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", published, p.Category, budget,
			p.Title, p.Link)
	}
	return tw.Flush() //nolint:wrapcheck // stdout
}

func printStats(w io.Writer, stats *model.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Active gigs:\t%d\n", stats.ActivePostings)
	fmt.Fprintf(tw, "Average budget:\t%.2f\n", stats.AvgBudget)
	fmt.Fprintf(tw, "Freelancers:\t%d\n", stats.Users)
	fmt.Fprintf(tw, "Delivered gigs:\t%d\n", stats.Delivered)
	return tw.Flush() //nolint:wrapcheck // stdout
}

func printTrending(w io.Writer, trending []model.TrendingCategory) error {
	if len(trending) == 0 {
		fmt.Fprintln(w, "Nothing is trending.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCHANGE\tCURRENT\tPREVIOUS")
	for _, t := range trending {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", t.Name, report.FormatChange(t.Change),
			t.Current, t.Previous)
	}
	return tw.Flush() //nolint:wrapcheck // stdout
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("unable encode JSON: %w", err)
	}
	return nil
}
