// Command hemolinkctl is the Hemolink operator CLI. It talks to the
// Postgres stores directly, so it works while the API server is down.
//
// Usage:
//
//	hemolinkctl migrate
//	hemolinkctl rank --blood-type O- --units 3
//	hemolinkctl inventory
//	hemolinkctl forecast
//	hemolinkctl recommend --blood-type A+
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hemolink/internal/matching"
	"hemolink/internal/platform/config"
	"hemolink/internal/platform/logger"
	"hemolink/internal/platform/postgres"
	id "hemolink/pkg/domain"
)

var log = logger.New(os.Stderr, "info", false)

func main() {
	_ = godotenv.Load(".env")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd(openPostgres).ExecuteContext(ctx); err != nil {
		log.Error("command failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "hemolinkctl",
		Short:         "Hemolink operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd())
	root.AddCommand(rankCmd(open))
	root.AddCommand(inventoryCmd(open))
	root.AddCommand(forecastCmd(open))
	root.AddCommand(recommendCmd(open))
	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Hemolink tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromEnv()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			db, err := postgres.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.CreateSchema(ctx, db); err != nil {
				return err
			}
			log.Info("schema ready", "tables", len(postgres.Tables))
			return nil
		},
	}
}

func rankCmd(open opener) *cobra.Command {
	var (
		bloodType         string
		units             int
		includeIneligible bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank compatible donors for a blood request",
		RunE: func(cmd *cobra.Command, args []string) error {
			bt, err := id.ParseBloodType(bloodType)
			if err != nil {
				return err
			}
			return run(cmd, open, func(ctx context.Context, svc *services) error {
				result, err := svc.ranker.Rank(ctx, matching.RankRequest{
					BloodType:         bt,
					UnitsNeeded:       units,
					IncludeIneligible: includeIneligible,
				})
				if err != nil {
					return err
				}
				if result.Outcome == matching.OutcomeStoreUnavailable {
					return fmt.Errorf("donor store unavailable: %w", result.StoreErr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s eligible of %s candidates (cap %d, %s)\n",
					result.Outcome, humanize.Comma(int64(result.Eligible)),
					humanize.Comma(int64(result.Candidates)), result.Cap, result.CapPolicy)

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DONOR\tNAME\tTYPE\tSCORE\tTIER\tDISTANCE\tLAST DONATION\tNOTIFY")
				for _, d := range result.Donors {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\t%s\t%s\t%t\n",
						d.ID, d.Name, d.BloodType, d.Score, d.Tier,
						humanize.FormatFloat("#,###.#", d.DistanceKm)+" km",
						lastDonation(d.LastDonation), d.EligibleToNotify)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&bloodType, "blood-type", "", "Requested blood type, e.g. O-")
	cmd.Flags().IntVar(&units, "units", 1, "Units needed")
	cmd.Flags().BoolVar(&includeIneligible, "include-ineligible", false, "Keep donors inside the deferral window")
	_ = cmd.MarkFlagRequired("blood-type")
	return cmd
}

func inventoryCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Show current stock against optimal levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, open, func(ctx context.Context, svc *services) error {
				snapshots, err := svc.inventory.Current(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TYPE\tCURRENT\tOPTIMAL\tPERCENT\tEXPIRING")
				for _, s := range snapshots {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\n",
						s.BloodType, humanize.Comma(int64(s.CurrentUnits)),
						humanize.Comma(int64(s.OptimalUnits)), s.PercentOfOptimal(),
						humanize.Comma(int64(s.ExpiringUnits)))
				}
				return tw.Flush()
			})
		},
	}
}

func forecastCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Show the demand forecast per blood type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, open, func(ctx context.Context, svc *services) error {
				forecasts, err := svc.forecasts.ForecastAll(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TYPE\t7 DAYS\t30 DAYS\tURGENCY\tUPDATED")
				for _, f := range forecasts {
					fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%s\t%s\n",
						f.BloodType, f.ShortTermDemand, f.MediumTermDemand,
						f.Urgency, humanize.Time(f.LastUpdated))
				}
				return tw.Flush()
			})
		},
	}
}

func recommendCmd(open opener) *cobra.Command {
	var bloodType string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend a donation appeal",
		RunE: func(cmd *cobra.Command, args []string) error {
			var bt *id.BloodType
			if bloodType != "" {
				parsed, err := id.ParseBloodType(bloodType)
				if err != nil {
					return err
				}
				bt = &parsed
			}
			return run(cmd, open, func(ctx context.Context, svc *services) error {
				result, err := svc.urgency.Recommend(ctx, bt)
				if err != nil {
					return err
				}
				if result.StoreUnavailable {
					log.Warn("stock data unavailable, showing the general appeal", "error", result.StoreErr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", result.Appeal, result.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bloodType, "blood-type", "", "Blood type to assess; omitted picks the most critical")
	return cmd
}

// run opens the services, calls fn, and closes them again.
func run(cmd *cobra.Command, open opener, fn func(ctx context.Context, svc *services) error) error {
	ctx := cmd.Context()
	svc, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	err = fn(ctx, svc)
	log.Debug("command finished", "duration", time.Since(start).Round(time.Millisecond))
	return err
}

func lastDonation(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}
