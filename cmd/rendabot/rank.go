package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"RendaBot/internal/extract"
	"RendaBot/internal/model"
	"RendaBot/internal/ranking"
	"RendaBot/internal/yield"
)

var rankOpts struct {
	cdi       float64
	balance   float64
	limit     float64
	normalize bool
}

var rankCmd = &cobra.Command{
	Use:   "rank <table.html>",
	Short: "Rank the offers of a saved results table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		offers, err := extract.New(logger).FromReader(f)
		if err != nil {
			return err
		}
		norm := &yield.Normalizer{Reference: rankOpts.cdi, NormalizeFloating: rankOpts.normalize, Now: time.Now}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()
		for _, class := range model.AllClasses {
			ranked := ranking.Rank(ranking.Input{
				Offers:  norm.All(extract.OfClass(offers, class)),
				Balance: rankOpts.balance,
			})
			fmt.Fprintf(w, "%s\t%d offers\n", class.Upper(), len(ranked))
			for i, o := range ranked {
				in := ranking.Intent(o, rankOpts.balance, rankOpts.limit)
				exempt := ""
				if o.TaxExempt {
					exempt = "isento"
				}
				fmt.Fprintf(w, "  %d\t%s\t%s\t%.2f%%\t%s\t%s\t%s\n",
					i+1, strings.TrimSpace(o.Name), o.RateText, o.EffectiveRate, exempt,
					extract.DateToBR(o.Maturity), extract.FormatMoney(in.Amount))
			}
		}
		return nil
	},
}

func init() {
	rankCmd.Flags().Float64Var(&rankOpts.cdi, "cdi", 11.0, "CDI reference rate, annual percent")
	rankCmd.Flags().Float64Var(&rankOpts.balance, "balance", 1e9, "available balance")
	rankCmd.Flags().Float64Var(&rankOpts.limit, "limit", 0, "purchase limit per offer")
	rankCmd.Flags().BoolVar(&rankOpts.normalize, "normalize-floating", false, "compare CDI+ and % do CDI offers on one scale")
}
