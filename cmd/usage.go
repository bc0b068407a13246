package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/chrisdamba/prepcast/internal/forecast"
	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/chrisdamba/prepcast/internal/pipeline"
	"github.com/chrisdamba/prepcast/internal/repositories/postgres"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Print historical ingredient usage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(viper.GetViper(), cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		p := pipeline.NewPipeline(cfg,
			postgres.NewOrderRepository(pool, loc),
			postgres.NewMenuItemRepository(pool),
			nil,
		)
		start, end := cfg.HistoryWindow(time.Now().In(loc))
		agg, err := p.ComputeHistoricalUsage(ctx, start, end)
		if err != nil {
			return err
		}
		printUsage(os.Stdout, agg)
		return nil
	},
}

func printUsage(w io.Writer, agg *models.Aggregation) {
	stats := forecast.Stats(agg.Table)
	fmt.Fprintf(w, "Order items processed: %d (skipped %d)\n", agg.Processed, agg.Skipped)
	fmt.Fprintf(w, "Hours covered: %d, ingredients used: %d of %d\n",
		agg.Table.Len(), stats.UsedIngredient, len(agg.Table.Ingredients))
	fmt.Fprintf(w, "Total usage: %.2f, average per hour: %.2f\n", stats.Total, stats.AverageHourly)
	fmt.Fprintf(w, "Busiest hour: %s (%.2f)\n", stats.BusiestHour.Hour.Format("2006-01-02 15:04"), stats.BusiestHour.Total)
	fmt.Fprintln(w, "Top ingredients:")
	for _, top := range stats.Top {
		fmt.Fprintf(w, "  %-24s %10.2f\n", top.Ingredient, top.Quantity)
	}
}

func printPrep(w io.Writer, res *pipeline.Result) {
	prep := res.Prep
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	if len(prep.TomorrowNeeds) > 0 {
		fmt.Fprintf(w, "Prep for %s:\n", models.DateKey(prep.Tomorrow))
		ids := make([]string, 0, len(prep.TomorrowNeeds))
		for id, v := range prep.TomorrowNeeds {
			if v > 0 {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "  %-24s %10.2f\n", id, prep.TomorrowNeeds[id])
		}
	}

	days := make([]string, 0, len(prep.TopByDay))
	for day := range prep.TopByDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		fmt.Fprintf(w, "%s top ingredients:", day)
		for _, top := range prep.TopByDay[day] {
			fmt.Fprintf(w, " %s=%.2f", top.Ingredient, top.Quantity)
		}
		fmt.Fprintln(w)
	}
	for _, rec := range res.Traffic {
		fmt.Fprintf(w, "%s (%s): %s\n", models.DateKey(rec.Date), rec.Weekday, rec.Text)
	}
}
