package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"offer-relay/cmd/bootstrap"
	"offer-relay/cmd/bootstrap/components"
	"offer-relay/internal/usecase/commands"
	"offer-relay/internal/usecase/queries"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type rootOptions struct {
	Format string
}

var validFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "offer-relay",
		Short:         "Relay marketplace best offers to Discord and answer them from there",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		newServeCommand(),
		newIngestCommand(opts),
		newNotifyCommand(opts),
		newMigrateCommand(),
		newOffersCommand(opts),
	)
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, the Discord bot and the admin API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newIngestCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion cycle and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pipeline commands.IngestionPipeline
			return runOnce(cmd.Context(), fx.Populate(&pipeline), func(ctx context.Context) error {
				summary, err := pipeline.RunCycle(ctx)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), opts.Format, summary, [][2]any{
					{"cycle", summary.CycleID},
					{"pages fetched", summary.PagesFetched},
					{"pages failed", summary.PagesFailed},
					{"extracted", summary.Extracted},
					{"inserted", summary.Inserted},
					{"deferred", summary.Deferred},
					{"dropped", summary.Dropped},
					{"skus resolved", summary.SKUsResolved},
					{"skus backfilled", summary.SKUsBackfilled},
				})
			})
		},
	}
}

func newNotifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Run one notification cycle and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dispatcher commands.NotificationDispatcher
			return runOnce(cmd.Context(), fx.Populate(&dispatcher), func(ctx context.Context) error {
				summary, err := dispatcher.RunCycle(ctx)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), opts.Format, summary, [][2]any{
					{"cycle", summary.CycleID},
					{"candidates", summary.Candidates},
					{"alerted", summary.Alerted},
					{"skipped", summary.Skipped},
					{"stale", summary.Stale},
					{"failed", summary.Failed},
					{"persist failed", summary.PersistFailed},
				})
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the offer store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var store *components.Store
			return runOnce(cmd.Context(), fx.Populate(&store), func(ctx context.Context) error {
				if err := store.Migrate(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", store.Driver)
				return err
			})
		},
	}
}

type offersOptions struct {
	State string
	SKU   string
	Limit int
}

func newOffersCommand(opts *rootOptions) *cobra.Command {
	o := &offersOptions{}
	cmd := &cobra.Command{
		Use:   "offers",
		Short: "List stored offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var q queries.OfferQueries
			return runOnce(cmd.Context(), fx.Populate(&q), func(ctx context.Context) error {
				views, err := q.List(ctx, queries.ListFilter{State: o.State, SKU: o.SKU, Limit: o.Limit})
				if err != nil {
					return err
				}
				return printOffers(cmd.OutOrStdout(), opts.Format, views)
			})
		},
	}
	cmd.Flags().StringVar(&o.State, "state", "", "response state (open|accepted|declined|countered|unavailable)")
	cmd.Flags().StringVar(&o.SKU, "sku", "", "exact SKU")
	cmd.Flags().IntVar(&o.Limit, "limit", 100, "maximum number of offers")
	return cmd
}

// runOnce starts the core graph, runs fn and stops the graph again.
func runOnce(ctx context.Context, populate fx.Option, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app := fx.New(
		bootstrap.CoreModule,
		populate,
		fx.WithLogger(bootstrap.NewFxLogger),
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	runErr := fn(ctx)
	if err := app.Stop(context.Background()); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func printSummary(w io.Writer, format string, summary any, rows [][2]any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%v\t%v\n", r[0], r[1])
	}
	return tw.Flush()
}

func printOffers(w io.Writer, format string, views []*queries.OfferView) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFER\tITEM\tSKU\tAMOUNT\tLISTING\tSTATE\tALERTED\tSURFACED\tEXPIRES")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\t%t\t%t\t%s\n",
			v.OfferID, v.ItemID, v.SKU, v.OfferAmount, v.OfferCurrency, v.BINPrice,
			v.ResponseState, v.ChannelAlerted, v.Surfaced, v.ExpiresOn)
	}
	return tw.Flush()
}
