package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"utmlens/internal/attribution"
	"utmlens/internal/timeframe"
)

var (
	attrRevenue      float64
	attrDealID       string
	attrModel        string
	attrHalfLifeDays float64
	attrRecalculate  string
)

var attributeCmd = &cobra.Command{
	Use:   "attribute <contact-id>",
	Short: "Credit a conversion across a contact's touchpoints",
	Example: `  utmctl attribute c-42 --revenue 1200 --model time_decay
  utmctl attribute c-42 --recalculate replace --model linear`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contactID := args[0]

		defaults := attributionDefaults()
		acfg := defaults.Config()
		if attrModel != "" {
			model, err := attribution.ParseModel(attrModel)
			if err != nil {
				return err
			}
			acfg.Model = model
		}
		if attrHalfLifeDays > 0 {
			acfg.HalfLife = time.Duration(attrHalfLifeDays * float64(24*time.Hour))
		}

		calc := openStore().Calculator(&timeframe.DefaultTimeProvider{}, defaults.HalfLife())

		var (
			events []attribution.Event
			err    error
		)
		switch attrRecalculate {
		case "":
			if attrRevenue < 0 {
				return fmt.Errorf("revenue must not be negative")
			}
			events, err = calc.CreateAttribution(cmd.Context(), contactID, attrDealID, attrRevenue, acfg)
		case "append":
			events, err = calc.AppendRecalculatedAttribution(cmd.Context(), contactID, acfg)
		case "replace":
			events, err = calc.ReplaceAttribution(cmd.Context(), contactID, acfg)
		default:
			return fmt.Errorf("--recalculate must be append or replace, got %q", attrRecalculate)
		}
		if err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Contact %s has no touchpoints\n", contactID)
		}
		return printJSON(cmd.OutOrStdout(), events)
	},
}

func init() {
	f := attributeCmd.Flags()
	f.Float64Var(&attrRevenue, "revenue", 0, "conversion revenue")
	f.StringVar(&attrDealID, "deal", "", "deal identifier")
	f.StringVar(&attrModel, "model", "", "first_touch, last_touch, linear or time_decay (default: stored setting)")
	f.Float64Var(&attrHalfLifeDays, "half-life-days", 0, "time decay half-life in days")
	f.StringVar(&attrRecalculate, "recalculate", "", "recompute from stored events instead of recording a conversion: append or replace")
}
