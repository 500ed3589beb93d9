package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"utmlens/internal/seeder"
	"utmlens/internal/timeframe"
)

var demoContacts int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default rules and mappings, optionally with demo data",
	Example: `  utmctl seed
  utmctl seed --demo 200`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		if err := st.SeedDefaults(cmd.Context()); err != nil {
			return err
		}
		if demoContacts <= 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Defaults seeded")
			return nil
		}

		clock := &timeframe.DefaultTimeProvider{}
		calc := st.Calculator(clock, attributionDefaults().HalfLife())
		s := seeder.NewSeeder(st.DB(), st.Ingestor(nil, clock), calc, logger, demoContacts)
		summary, err := s.Run(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), summary)
	},
}

func init() {
	seedCmd.Flags().IntVar(&demoContacts, "demo", 0, "number of demo contacts to generate")
}
