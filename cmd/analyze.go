package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Saai416/CSV-Insights-dashboard/internal/chart"
	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/ingest"
)

var (
	anaSampleRows int
	anaTopValues  int
	anaBudget     int
	anaCharts     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV locally and print its digest",
	Long:  `Analyze runs the ingestion and summarization stages against a local file and prints the resulting digest, without calling the generation service.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}

		maxBytes := 0
		if cfg != nil {
			maxBytes = cfg.MaxUploadBytes()
		}
		ds, err := ingest.Parse(content, filepath.Base(path), maxBytes)
		if err != nil {
			return err
		}

		opt := digest.DefaultOptions()
		if cfg != nil {
			opt = digest.Options{
				SampleRows:  cfg.SampleRows,
				TopK:        cfg.TopValues,
				MaxColumns:  cfg.MaxDigestColumns,
				BudgetBytes: cfg.DigestBudgetBytes,
			}
		}
		if anaSampleRows > 0 {
			opt.SampleRows = anaSampleRows
		}
		if anaTopValues > 0 {
			opt.TopK = anaTopValues
		}
		if anaBudget > 0 {
			opt.BudgetBytes = anaBudget
		}

		d := digest.Summarize(ds, opt)
		fmt.Print(d.Render())

		if anaCharts {
			spec := chart.Build(ds)
			if !spec.HasNumeric {
				fmt.Println("\n[CHARTS]")
				fmt.Println("- " + spec.Message)
				return nil
			}
			fmt.Println("\n[CHARTS]")
			fmt.Printf("- primary column: %s\n", spec.PrimaryColumn)
			if spec.Bar != nil {
				fmt.Printf("- %s:\n", spec.Bar.Title)
				for i := range spec.Bar.Labels {
					fmt.Printf("  %s: %.6g\n", spec.Bar.Labels[i], spec.Bar.Values[i])
				}
			}
			if spec.Histogram != nil {
				fmt.Printf("- %s:\n", spec.Histogram.Title)
				for i := range spec.Histogram.Labels {
					fmt.Printf("  %s: %.0f\n", spec.Histogram.Labels[i], spec.Histogram.Values[i])
				}
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 0, "number of sample rows in the digest")
	analyzeCmd.Flags().IntVar(&anaTopValues, "top-values", 0, "top values per categorical column")
	analyzeCmd.Flags().IntVar(&anaBudget, "budget", 0, "digest size budget in bytes")
	analyzeCmd.Flags().BoolVar(&anaCharts, "charts", false, "also print derived chart series")
	rootCmd.AddCommand(analyzeCmd)
}
