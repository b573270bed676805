package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cross-session analytics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v := viperForCmd(cmd)
		log := setupLogging(v)

		mgr, st, err := openManager(v, log)
		if err != nil {
			return err
		}
		defer st.Close()

		a := mgr.CalculateAnalytics()
		out := cmd.OutOrStdout()

		if a.TotalSessions == 0 {
			fmt.Fprintln(out, "no sessions recorded yet")
			return nil
		}

		fmt.Fprintf(out, "sessions: %d (%d completed), total time %s\n",
			a.TotalSessions, a.CompletedSessions, a.TotalTime.Round(time.Minute))
		fmt.Fprintf(out, "average accuracy: %.0f%%\n", a.AverageAccuracy*100)
		if a.MostProductiveHour >= 0 {
			fmt.Fprintf(out, "most productive hour: %02d:00\n", a.MostProductiveHour)
		}
		if a.PreferredSessionLength > 0 {
			fmt.Fprintf(out, "typical session length: %.0f min\n", a.PreferredSessionLength)
		}
		fmt.Fprintf(out, "improvement trend: %+.3f per session\n", a.ImprovementTrend)
		fmt.Fprintf(out, "streak: %d days (longest %d)\n", a.CurrentStreak, a.LongestStreak)
		fmt.Fprintf(out, "weekly goal progress: %.0f%%\n", a.WeeklyProgress)

		if len(a.ByContentType) > 0 {
			fmt.Fprintln(out, "\nby content type:")
			for ct, ts := range a.ByContentType {
				fmt.Fprintf(out, "  %-16s %3d sessions, %.0f%% accuracy, %s\n",
					ct, ts.Count, ts.AverageAccuracy*100, ts.TotalTime.Round(time.Minute))
			}
		}

		gp := mgr.CheckGoalProgress()
		fmt.Fprintf(out, "\ntoday: %d/%d sessions (%.0f%%)\n", gp.Completed, gp.Target, gp.Percentage)
		return nil
	},
}
