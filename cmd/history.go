package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyloop/engine/internal/manager"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived sessions",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringP("type", "t", "", "Filter by content type")
	f.Bool("completed", false, "Only completed sessions")
	f.IntP("limit", "l", 20, "Maximum entries to show (0 = all)")
	f.String("delete", "", "Delete the session with this id instead of listing")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log := setupLogging(v)

	mgr, st, err := openManager(v, log)
	if err != nil {
		return err
	}
	defer st.Close()
	out := cmd.OutOrStdout()

	if id := v.GetString("delete"); id != "" {
		if err := mgr.DeleteSession(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintln(out, "deleted", id)
		return nil
	}

	entries := mgr.GetSessionHistory(manager.HistoryFilter{
		ContentType:   manager.ContentType(v.GetString("type")),
		CompletedOnly: v.GetBool("completed"),
		Limit:         v.GetInt("limit"),
	})
	if len(entries) == 0 {
		fmt.Fprintln(out, "no sessions found")
		return nil
	}

	for _, e := range entries {
		status := "completed"
		if !e.Completed {
			status = "abandoned"
		}
		fmt.Fprintf(out, "%s  %-16s %-9s %2d/%2d answered  %.0f%%  %s  %s\n",
			e.StartedAt.Format("2006-01-02 15:04"), e.ContentType, status,
			e.QuestionsAnswered, e.QuestionsTotal, e.Accuracy*100,
			e.Duration.Round(time.Second), e.ID)
	}
	return nil
}
