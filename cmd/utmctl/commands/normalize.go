package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"utmlens/internal/normalization"
	"utmlens/internal/pkg/referrers"
	"utmlens/internal/touchpoints"
	"utmlens/internal/utm"
)

var (
	rawParams   utm.Params
	landingURL  string
	referrerURL string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Show how raw UTM parameters are normalized and which channel they land in",
	Example: `  utmctl normalize --source FB --medium cpc
  utmctl normalize --url "https://shop.example.com/?utm_source=li&utm_medium=paid"
  utmctl normalize --referrer https://news.ycombinator.com/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := rawParams
		if landingURL != "" {
			fromURL, err := utm.FromURL(landingURL)
			if err != nil {
				return err
			}
			params = params.Merge(fromURL)
		}

		inferred := false
		if params.Source == "" && params.Medium == "" {
			self := touchpoints.SiteHost(landingURL)
			if self == "" {
				self = touchpoints.SiteHost(cfg.Domain)
			}
			if p, ok := referrers.InferParams(referrerURL, self); ok {
				params = params.Merge(p)
				inferred = true
			}
		}

		st := openStore()
		normalized, err := st.Normalizer().Normalize(cmd.Context(), params)
		if err != nil {
			return fmt.Errorf("failed to normalize: %w", err)
		}
		result, err := st.Mapper().MapToSource(cmd.Context(), normalized)
		if err != nil {
			return fmt.Errorf("failed to map: %w", err)
		}

		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"original":               params,
			"normalized":             normalized,
			"validation":             normalization.Validate(params),
			"inferred_from_referrer": inferred,
			"result":                 result,
		})
	},
}

func init() {
	f := normalizeCmd.Flags()
	f.StringVar(&rawParams.Source, "source", "", "utm_source")
	f.StringVar(&rawParams.Medium, "medium", "", "utm_medium")
	f.StringVar(&rawParams.Campaign, "campaign", "", "utm_campaign")
	f.StringVar(&rawParams.Term, "term", "", "utm_term")
	f.StringVar(&rawParams.Content, "content", "", "utm_content")
	f.StringVar(&landingURL, "url", "", "landing page URL to read utm_* parameters from")
	f.StringVar(&referrerURL, "referrer", "", "referrer used when no source or medium is given")
}
