package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"utmlens/internal/timeframe"
)

var (
	reportRange string
	reportFrom  string
	reportTo    string
	reportTz    string
	reportLimit int
)

var reportCmd = &cobra.Command{
	Use:       "report [channels|overall|campaigns|contact <id>]",
	Short:     "Print cost, revenue, CAC, ROI and ROAS figures",
	ValidArgs: []string{"channels", "overall", "campaigns", "contact"},
	Args:      cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := "channels"
		if len(args) > 0 {
			kind = args[0]
		}

		period, err := timeframe.NewParser(timeframe.RangeLast30Days).Parse(timeframe.ParserParams{
			Range:    reportRange,
			FromDate: reportFrom,
			ToDate:   reportTo,
			Tz:       reportTz,
		})
		if err != nil {
			return err
		}

		agg := openStore().Aggregator()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		switch kind {
		case "channels":
			rows, err := agg.ChannelMetrics(ctx, period)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "CHANNEL\tCOST\tREVENUE\tCONVERSIONS\tCAC\tROI %\tROAS\t")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.1f\t%.2f\t\n",
					r.Channel, r.TotalCost, r.TotalRevenue, r.Conversions, r.CAC, r.ROI, r.ROAS)
			}
			return w.Flush()
		case "overall":
			overall, err := agg.OverallMetrics(ctx, period)
			if err != nil {
				return err
			}
			return printJSON(out, overall)
		case "campaigns":
			campaigns, err := agg.TopCampaigns(ctx, period, reportLimit)
			if err != nil {
				return err
			}
			return printJSON(out, campaigns)
		case "contact":
			if len(args) < 2 {
				return fmt.Errorf("usage: utmctl report contact <id>")
			}
			summary, err := agg.ContactMetrics(ctx, args[1])
			if err != nil {
				return err
			}
			return printJSON(out, summary)
		default:
			return fmt.Errorf("unknown report %q", kind)
		}
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportRange, "range", "", "named range such as last_7_days or last_month (default: last_30_days)")
	f.StringVar(&reportFrom, "from", "", "start date, YYYY-MM-DD")
	f.StringVar(&reportTo, "to", "", "end date, YYYY-MM-DD")
	f.StringVar(&reportTz, "tz", "", "IANA time zone for the range")
	f.IntVar(&reportLimit, "limit", 10, "number of campaigns to list")
}
