package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/floodsense/internal/present"
	"github.com/sells-group/floodsense/internal/risk"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <score>",
	Short: "Print the risk category for a raw score in [0,1]",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := classifyScore(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s (%d%%)\n", a.Category, a.Label, a.Percent)
		return err
	},
}

var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Print the map legend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return present.RenderLegend(cmd.OutOrStdout(), present.Legend())
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(legendCmd)
}

func classifyScore(s string) (risk.Assessment, error) {
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return risk.Assessment{}, eris.Wrapf(err, "classify: parse score %q", s)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return risk.Assessment{}, eris.Errorf("classify: score %v outside [0,1]", score)
	}
	return risk.Assess(score), nil
}
