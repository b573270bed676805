package cmd

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/studyloop/engine/internal/item"
	"github.com/studyloop/engine/internal/manager"
	"github.com/studyloop/engine/internal/pool"
	"github.com/studyloop/engine/internal/session"
	"github.com/studyloop/engine/internal/store"
)

func testQuestions() []item.Item {
	return []item.Item{
		{ID: "q1", Content: "Explain osmosis.", Difficulty: item.DifficultyEasy, Topic: "cells", Week: "week-01"},
		{ID: "q2", Content: "Describe mitosis.", Difficulty: item.DifficultyMedium, Topic: "cells", Week: "week-02"},
		{ID: "q3", Content: "Define enzyme.", Difficulty: item.DifficultyMedium, Topic: "proteins", Week: "week-03"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// A checkpointed session must survive a process restart: a fresh manager
// over the same database reports it as interrupted, and its state
// snapshot rebuilds the session store with cursor and answers intact.
func TestCheckpointRoundTripRecoversInterruptedSession(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "studyloop.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	mgr := manager.New(manager.WithPersister(st), manager.WithLogger(discardLogger()))
	cfg := session.Config{
		ContentType:  string(manager.ContentOpenQuestions),
		NumQuestions: 3,
		Focus:        session.FocusRecentContent,
	}
	info, err := mgr.StartSession(ctx, manager.ContentOpenQuestions, cfg)
	if err != nil {
		t.Fatalf("manager StartSession: %v", err)
	}

	s := session.New(pool.NewMemory(testQuestions()...), nil)
	if err := s.StartSession(ctx, cfg); err != nil {
		t.Fatalf("session StartSession: %v", err)
	}
	q, err := s.CurrentQuestion()
	if err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}
	if err := s.SubmitAnswer(ctx, q.ID, "water crosses the membrane", 8*time.Second); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if err := s.MoveToNextQuestion(); err != nil {
		t.Fatalf("MoveToNextQuestion: %v", err)
	}

	checkpoint(ctx, mgr, st, s, info.ID, discardLogger())
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	mgr2 := manager.New(manager.WithPersister(st2), manager.WithLogger(discardLogger()))
	prior, ok := mgr2.RecoverSession()
	if !ok {
		t.Fatal("RecoverSession found no interrupted session")
	}
	if prior.ID != info.ID {
		t.Fatalf("recovered id = %s, want %s", prior.ID, info.ID)
	}
	if prior.Progress.AnsweredCount != 1 {
		t.Errorf("recovered AnsweredCount = %d, want 1", prior.Progress.AnsweredCount)
	}

	data, found, err := st2.LoadSnapshot(ctx, sessionStateKey(prior.ID))
	if err != nil || !found {
		t.Fatalf("LoadSnapshot: found = %v, err = %v", found, err)
	}
	snap, err := session.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	restored := session.New(pool.NewMemory(testQuestions()...), nil)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := restored.ResumeSession(); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}

	q2, err := restored.CurrentQuestion()
	if err != nil {
		t.Fatalf("CurrentQuestion after restore: %v", err)
	}
	if q2.ID == q.ID {
		t.Error("cursor did not advance past the answered question after recovery")
	}
	if err := restored.SubmitAnswer(ctx, q2.ID, "chromosomes separate into daughter cells", 5*time.Second); err != nil {
		t.Fatalf("SubmitAnswer after restore: %v", err)
	}
	if got := restored.Progress().AnsweredCount; got != 2 {
		t.Errorf("AnsweredCount after restore = %d, want 2", got)
	}
}

// Declining recovery must clear both the manager record and the state
// snapshot so the next run starts clean.
func TestDiscardInterruptedClearsPersistedState(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "studyloop.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	mgr := manager.New(manager.WithPersister(st), manager.WithLogger(discardLogger()))
	cfg := session.Config{
		ContentType:  string(manager.ContentCuecards),
		NumQuestions: 3,
		Focus:        session.FocusComprehensive,
	}
	info, err := mgr.StartSession(ctx, manager.ContentCuecards, cfg)
	if err != nil {
		t.Fatalf("manager StartSession: %v", err)
	}

	s := session.New(pool.NewMemory(testQuestions()...), nil)
	if err := s.StartSession(ctx, cfg); err != nil {
		t.Fatalf("session StartSession: %v", err)
	}
	checkpoint(ctx, mgr, st, s, info.ID, discardLogger())

	discardInterrupted(ctx, mgr, st, info.ID, discardLogger())

	if _, ok := mgr.RecoverSession(); ok {
		t.Error("discarded session still reported as recoverable")
	}
	if _, found, err := st.LoadSnapshot(ctx, sessionStateKey(info.ID)); err != nil || found {
		t.Errorf("state snapshot still present: found = %v, err = %v", found, err)
	}
}
