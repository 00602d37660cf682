package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"streamlance.app/internal/classifier"
	"streamlance.app/internal/config"
	"streamlance.app/internal/ingest"
	"streamlance.app/internal/storage"
	"streamlance.app/internal/taxonomy"
)

var ingestCmd = cobra.Command{
	Use:   "ingest [feed_url...]",
	Short: "Fetch configured feeds once and store new gigs",
	Long: `Fetch configured feeds once and store new gigs.

Feeds given as arguments are fetched instead of FEED_URLS.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				tax, err := loadTaxonomy()
				if err != nil {
					return err
				}

				p := newPipeline(store, tax)
				if len(args) > 0 {
					p = ingest.New(store, classifier.New(tax),
						config.Opts.SourcePlatform(), args)
				}

				result, err := p.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"feeds: %d, failed: %d, not modified: %d, parsed: %d, created: %d\n",
					result.Feeds, result.Failed, result.NotModified, result.Parsed,
					result.Created)
				return nil
			})
	},
}

func newPipeline(store ingest.Store, tax *taxonomy.Taxonomy) *ingest.Pipeline {
	return ingest.New(store, classifier.New(tax), config.Opts.SourcePlatform(),
		config.Opts.FeedURLs())
}
