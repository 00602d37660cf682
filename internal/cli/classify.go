package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"streamlance.app/internal/classifier"
)

var (
	flagSkills      []string
	flagDescription string
)

var classifyCmd = cobra.Command{
	Use:   "classify title",
	Short: "Show how a gig would be classified",
	Example: `
$ streamlance classify "Build a Shopify store" --skills Shopify,CSS
`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		tax, err := loadTaxonomy()
		if err != nil {
			return err
		}
		result := classifier.New(tax).Explain(args[0], flagSkills,
			flagDescription)
		return printClassification(cmd.OutOrStdout(), &result)
	},
}

func init() {
	classifyCmd.Flags().StringSliceVar(&flagSkills, "skills", nil,
		"Comma separated skills of the gig")
	classifyCmd.Flags().StringVar(&flagDescription, "description", "",
		"Description of the gig")
}

func printClassification(w io.Writer, result *classifier.Result) error {
	fmt.Fprintln(w, "Category:", result.Category)
	if result.Disqualified {
		fmt.Fprintln(w, "Disqualified: true")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSCORE\tMATCHED")
	for _, s := range result.Scores {
		if s.Score == 0 && !s.Excluded {
			continue
		}
		matched := strings.Join(s.Matched, ", ")
		if s.Excluded {
			matched = "excluded"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Score, matched)
	}
	return tw.Flush() //nolint:wrapcheck // stdout
}
