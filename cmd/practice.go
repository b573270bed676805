package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/studyloop/engine/internal/evaluate"
	"github.com/studyloop/engine/internal/item"
	"github.com/studyloop/engine/internal/llm"
	"github.com/studyloop/engine/internal/manager"
	"github.com/studyloop/engine/internal/pool"
	"github.com/studyloop/engine/internal/session"
	"github.com/studyloop/engine/internal/store"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a practice session over a question file",
	Long: `Runs an interactive practice session. Questions come from a JSON file;
answers are read from stdin. Type an answer and press enter, or use
/skip, /flag, /back, /quit.`,
	RunE: runPractice,
}

func init() {
	f := practiceCmd.Flags()
	f.StringP("questions", "q", "questions.json", "Path to questions JSON file")
	f.StringP("type", "t", string(manager.ContentOpenQuestions), "Content type (cuecards, multiple-choice, open-questions)")
	f.IntP("num", "n", 10, "Number of questions in the session")
	f.StringP("focus", "f", string(session.FocusComprehensive), "Focus strategy (comprehensive, weak-areas, recent-content, tailored-for-me)")
	f.StringP("difficulty", "d", "", "Filter by difficulty (easy, medium, hard)")
	f.StringSliceP("weeks", "w", nil, "Filter by week labels (repeatable)")
	f.String("evaluate", "heuristic", "Answer evaluation: heuristic, llm, or off")
}

func runPractice(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log := setupLogging(v)
	ctx := cmd.Context()

	questions, err := pool.LoadFile(v.GetString("questions"))
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	evaluator, enableEval, err := buildEvaluator(cmd.Context(), v, log)
	if err != nil {
		return err
	}

	mgr, st, err := openManager(v, log)
	if err != nil {
		return err
	}
	defer st.Close()

	s := session.New(questions, evaluator,
		session.WithLogger(log),
		session.WithAwaitEvaluations(30*time.Second))

	info, resumed := resumeInterrupted(cmd, mgr, st, s, log)
	if !resumed {
		contentType := manager.ContentType(v.GetString("type"))
		cfg := session.Config{
			ContentType:      string(contentType),
			Weeks:            v.GetStringSlice("weeks"),
			Difficulty:       item.Difficulty(v.GetString("difficulty")),
			Focus:            session.Focus(v.GetString("focus")),
			NumQuestions:     v.GetInt("num"),
			EnableEvaluation: enableEval,
		}

		info, err = mgr.StartSession(ctx, contentType, cfg)
		if err != nil {
			return err
		}
		if err := s.StartSession(ctx, cfg); err != nil {
			return err
		}
	}

	save := func() { checkpoint(ctx, mgr, st, s, info.ID, log) }
	save()

	if err := runPracticeLoop(cmd, s, save); err != nil {
		return err
	}

	perf := finishSession(s)
	stats := s.SessionStats()
	final := manager.FinalStats{
		Accuracy:          perf.OverallScore,
		Score:             perf.OverallScore,
		QuestionsAnswered: stats.AnsweredCount,
		QuestionsTotal:    stats.TotalQuestions,
		Duration:          stats.Elapsed,
		Performance:       perf,
	}
	if err := mgr.EndSession(ctx, info.ID, final); err != nil {
		log.Warn("archiving session", "error", err)
	}
	if err := st.DeleteSnapshot(ctx, sessionStateKey(info.ID)); err != nil {
		log.Warn("deleting session state", "session_id", info.ID, "error", err)
	}

	printSummary(cmd, s, perf)
	return nil
}

// sessionStateKey namespaces the session store's own snapshot apart from
// the manager's ActiveSessionInfo record under the same id.
func sessionStateKey(id string) string { return id + "/state" }

// checkpoint writes the live session through the durable store so a
// crash mid-session can be resumed.
func checkpoint(ctx context.Context, mgr *manager.Manager, st *store.Store, s *session.Store, id string, log *slog.Logger) {
	if err := mgr.UpdateProgress(ctx, id, s.Progress()); err != nil {
		log.Warn("updating session progress", "session_id", id, "error", err)
	}
	data, err := session.EncodeSnapshot(s.Snapshot())
	if err != nil {
		log.Warn("encoding session state", "session_id", id, "error", err)
		return
	}
	if err := st.SaveSnapshot(ctx, sessionStateKey(id), session.SnapshotVersion, data); err != nil {
		log.Warn("saving session state", "session_id", id, "error", err)
	}
}

// resumeInterrupted offers to pick up a session left behind by a crash.
// It restores the session store from the persisted state snapshot and
// reports whether the user chose to resume.
func resumeInterrupted(cmd *cobra.Command, mgr *manager.Manager, st *store.Store, s *session.Store, log *slog.Logger) (manager.ActiveSessionInfo, bool) {
	ctx := cmd.Context()
	prior, ok := mgr.RecoverSession()
	if !ok {
		return manager.ActiveSessionInfo{}, false
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found an interrupted %s session from %s (%d/%d answered). Resume it? [y/N]: ",
		prior.ContentType, prior.StartedAt.Format("2006-01-02 15:04"),
		prior.Progress.AnsweredCount, prior.Progress.TotalQuestions)

	scanner := bufio.NewScanner(os.Stdin)
	answer := ""
	if scanner.Scan() {
		answer = strings.ToLower(strings.TrimSpace(scanner.Text()))
	}
	if answer != "y" && answer != "yes" {
		discardInterrupted(ctx, mgr, st, prior.ID, log)
		return manager.ActiveSessionInfo{}, false
	}

	data, found, err := st.LoadSnapshot(ctx, sessionStateKey(prior.ID))
	if err != nil || !found {
		log.Warn("session state unavailable, starting fresh", "session_id", prior.ID, "error", err)
		discardInterrupted(ctx, mgr, st, prior.ID, log)
		return manager.ActiveSessionInfo{}, false
	}
	snap, err := session.DecodeSnapshot(data)
	if err != nil {
		log.Warn("session state unreadable, starting fresh", "session_id", prior.ID, "error", err)
		discardInterrupted(ctx, mgr, st, prior.ID, log)
		return manager.ActiveSessionInfo{}, false
	}
	if err := s.Restore(snap); err != nil {
		log.Warn("restoring session state failed, starting fresh", "session_id", prior.ID, "error", err)
		discardInterrupted(ctx, mgr, st, prior.ID, log)
		return manager.ActiveSessionInfo{}, false
	}
	// Restore parks the session paused; pick the timer back up.
	if err := s.ResumeSession(); err != nil {
		log.Warn("resuming restored session", "session_id", prior.ID, "error", err)
		s.ResetSession()
		discardInterrupted(ctx, mgr, st, prior.ID, log)
		return manager.ActiveSessionInfo{}, false
	}
	if prior.Status == session.StatusPaused {
		if err := mgr.ResumeSession(prior.ID); err != nil {
			log.Warn("marking session resumed", "session_id", prior.ID, "error", err)
		}
	}
	return prior, true
}

// discardInterrupted drops a recovered session the user declined along
// with its persisted state.
func discardInterrupted(ctx context.Context, mgr *manager.Manager, st *store.Store, id string, log *slog.Logger) {
	mgr.DiscardActiveSession(ctx)
	if err := st.DeleteSnapshot(ctx, sessionStateKey(id)); err != nil {
		log.Warn("deleting session state", "session_id", id, "error", err)
	}
}

// buildEvaluator resolves the --evaluate flag into an Evaluator.
func buildEvaluator(ctx context.Context, v *viper.Viper, log *slog.Logger) (evaluate.Evaluator, bool, error) {
	switch strings.ToLower(v.GetString("evaluate")) {
	case "off":
		return nil, false, nil
	case "llm":
		cfg := llm.ConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			discovered, ok := llm.DiscoverConfig()
			if !ok {
				return nil, false, fmt.Errorf("llm evaluation requested but no provider configured: %w", err)
			}
			cfg = discovered
		}
		provider, err := llm.NewProvider(ctx, cfg, log)
		if err != nil {
			return nil, false, fmt.Errorf("create LLM provider: %w", err)
		}
		return evaluate.NewLLMEvaluator(provider, evaluate.DefaultLLMConfig()), true, nil
	default:
		return evaluate.NewHeuristic(), true, nil
	}
}

// runPracticeLoop serves questions until the session leaves the active
// state or stdin is exhausted. save checkpoints the session through the
// durable store after every recorded answer.
func runPracticeLoop(cmd *cobra.Command, s *session.Store, save func()) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for s.Status() == session.StatusActive {
		q, err := s.CurrentQuestion()
		if err != nil {
			return err
		}
		p := s.Progress()
		fmt.Fprintf(out, "\n[%d/%d] (%s", p.CurrentIndex+1, p.TotalQuestions, q.Difficulty)
		if q.Topic != "" {
			fmt.Fprintf(out, ", %s", q.Topic)
		}
		fmt.Fprintf(out, ")\n%s\n> ", q.Content)

		started := time.Now()
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "/quit":
			return nil
		case "/skip":
			if err := s.SkipQuestion(cmd.Context()); err != nil {
				return err
			}
			save()
			continue
		case "/flag":
			if err := s.FlagQuestion(q.ID); err != nil {
				return err
			}
			fmt.Fprintln(out, "flagged for review")
			continue
		case "/back":
			if err := s.MoveToPreviousQuestion(); err != nil {
				return err
			}
			continue
		}

		if err := s.SubmitAnswer(cmd.Context(), q.ID, line, time.Since(started)); err != nil {
			return err
		}
		if err := s.MoveToNextQuestion(); err != nil {
			return err
		}
		save()
	}
	return scanner.Err()
}

// finishSession ends the session if the loop left it running.
func finishSession(s *session.Store) session.Performance {
	if st := s.Status(); st == session.StatusActive || st == session.StatusPaused {
		if perf, err := s.EndSession(); err == nil {
			return perf
		}
	}
	return s.CalculatePerformance()
}

func printSummary(cmd *cobra.Command, s *session.Store, perf session.Performance) {
	out := cmd.OutOrStdout()
	stats := s.SessionStats()

	fmt.Fprintf(out, "\n--- session summary ---\n")
	fmt.Fprintf(out, "answered: %d/%d (skipped %d)\n", stats.AnsweredCount, stats.TotalQuestions, stats.SkippedCount)
	fmt.Fprintf(out, "score: %.0f%%  consistency: %.0f%%  time: %s\n",
		perf.OverallScore*100, perf.ConsistencyScore*100, stats.Elapsed.Round(time.Second))

	if len(perf.TopicBreakdown) > 0 {
		fmt.Fprintln(out, "\nby topic:")
		for topic, ts := range perf.TopicBreakdown {
			fmt.Fprintf(out, "  %-20s %.0f%% over %d answers\n", topic, ts.AverageScore*100, ts.Count)
		}
	}

	for _, a := range s.LowScoringAnswers(0.6) {
		fb, err := s.EvaluationFeedback(a.QuestionID)
		if err != nil || fb.Feedback == "" {
			continue
		}
		fmt.Fprintf(out, "\nreview %s (%.0f%%): %s\n", a.QuestionID, fb.Score*100, fb.Feedback)
		for _, sug := range fb.Suggestions {
			fmt.Fprintf(out, "  - %s\n", sug)
		}
	}
}
