package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

func newGradeCmd() *cobra.Command {
	var (
		facts     nutriscore.NutritionFacts
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Compute the Nutri-Score grade of one serving",
		Long: `Scores calories, sugar, fat, fiber and protein and prints the grade,
the score and the per-component points.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for name, v := range map[string]nutriscore.Amount{
				"calories": facts.Calories, "sugar": facts.Sugar, "fat": facts.Fat,
				"fiber": facts.Fiber, "protein": facts.Protein,
			} {
				if v < 0 {
					return fmt.Errorf("--%s must not be negative", name)
				}
			}
			return writeGrade(cmd.OutOrStdout(), nutriscore.Evaluate(facts), outputFmt)
		},
	}

	cmd.Flags().Float64Var((*float64)(&facts.Calories), "calories", 0, "Calories per serving (kcal)")
	cmd.Flags().Float64Var((*float64)(&facts.Sugar), "sugar", 0, "Sugar per serving (g)")
	cmd.Flags().Float64Var((*float64)(&facts.Fat), "fat", 0, "Fat per serving (g)")
	cmd.Flags().Float64Var((*float64)(&facts.Fiber), "fiber", 0, "Fiber per serving (g)")
	cmd.Flags().Float64Var((*float64)(&facts.Protein), "protein", 0, "Protein per serving (g)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func writeGrade(w io.Writer, res nutriscore.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			nutriscore.Result
			Display nutriscore.Info `json:"display"`
		}{res, res.Grade.Info()})
	case "text":
		info := res.Grade.Info()
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Grade:\t%s (%s)\n", res.Grade, info.Name)
		fmt.Fprintf(tw, "Score:\t%d\n", res.Score)
		fmt.Fprintf(tw, "Calories:\t+%d\n", res.Points.Calories)
		fmt.Fprintf(tw, "Sugar:\t+%d\n", res.Points.Sugar)
		fmt.Fprintf(tw, "Fat:\t+%d\n", res.Points.Fat)
		fmt.Fprintf(tw, "Fiber:\t-%d\n", res.Points.Fiber)
		fmt.Fprintf(tw, "Protein:\t-%d\n", res.Points.Protein)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}
