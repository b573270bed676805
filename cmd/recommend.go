package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest what to practice next",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v := viperForCmd(cmd)
		log := setupLogging(v)

		mgr, st, err := openManager(v, log)
		if err != nil {
			return err
		}
		defer st.Close()

		recs := mgr.GenerateRecommendations()
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "nothing to recommend right now")
			return nil
		}

		for i, r := range recs {
			fmt.Fprintf(out, "%d. [%s] %s (~%s)\n", i+1, r.Priority, r.ContentType,
				r.EstimatedDuration.Round(time.Minute))
			fmt.Fprintf(out, "   %s\n", r.Reason)
			if r.Config.Focus != "" {
				fmt.Fprintf(out, "   focus: %s, %d questions\n", r.Config.Focus, r.Config.NumQuestions)
			}
			for _, b := range r.Benefits {
				fmt.Fprintf(out, "   - %s\n", b)
			}
		}
		return nil
	},
}
