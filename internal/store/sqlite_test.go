package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/itqan/nahw-station/internal/domain"
)

func testStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func TestSQLiteStore_GetPlayerMissing(t *testing.T) {
	repo := testStore(t)

	payload, err := repo.GetPlayer(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	if payload != nil {
		t.Errorf("Expected nil payload for unknown username, got %+v", payload)
	}
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	repo := testStore(t)
	ctx := context.Background()

	payload := domain.Payload{
		Gender:     domain.GenderGirl,
		Difficulty: domain.DifficultyIntermediate,
		Progress:   domain.Progress{CompletedStations: []int{1, 2}, TotalScore: 80},
		History: []domain.QuizAttempt{
			{StationID: 1, QuestionID: 3, QuestionText: "ما إعراب الفاعل؟", IsCorrect: true, Topic: "الفاعل"},
		},
		LastSync: "2026-08-30T09:00:00Z",
	}

	if err := repo.UpsertPlayer(ctx, "أحمد", payload); err != nil {
		t.Fatalf("UpsertPlayer failed: %v", err)
	}

	got, err := repo.GetPlayer(ctx, "أحمد")
	if err != nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a payload")
	}
	if got.Progress.TotalScore != 80 || len(got.Progress.CompletedStations) != 2 {
		t.Errorf("Progress mangled: %+v", got.Progress)
	}
	if len(got.History) != 1 || got.History[0].QuestionText != "ما إعراب الفاعل؟" {
		t.Errorf("History mangled: %+v", got.History)
	}
	if got.LastSync != payload.LastSync {
		t.Errorf("Expected lastSync %q, got %q", payload.LastSync, got.LastSync)
	}
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	repo := testStore(t)
	ctx := context.Background()

	first := domain.Payload{Progress: domain.Progress{CompletedStations: []int{1}, TotalScore: 40}}
	second := domain.Payload{Progress: domain.Progress{CompletedStations: []int{1, 2}, TotalScore: 90}}

	if err := repo.UpsertPlayer(ctx, "sara", first); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	if err := repo.UpsertPlayer(ctx, "sara", second); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := repo.GetPlayer(ctx, "sara")
	if err != nil || got == nil {
		t.Fatalf("GetPlayer failed: %v / %v", got, err)
	}
	if got.Progress.TotalScore != 90 {
		t.Errorf("Expected last write to win with 90 points, got %d", got.Progress.TotalScore)
	}
}

func TestSQLiteStore_AllPlayers(t *testing.T) {
	repo := testStore(t)
	ctx := context.Background()

	names := []string{"sara", "omar", "ليلى"}
	for i, name := range names {
		payload := domain.Payload{Progress: domain.Progress{TotalScore: (i + 1) * 10}}
		if err := repo.UpsertPlayer(ctx, name, payload); err != nil {
			t.Fatalf("Upsert %s failed: %v", name, err)
		}
	}

	players, err := repo.AllPlayers(ctx)
	if err != nil {
		t.Fatalf("AllPlayers failed: %v", err)
	}
	if len(players) != len(names) {
		t.Fatalf("Expected %d players, got %d", len(names), len(players))
	}
	if players["ليلى"].Progress.TotalScore != 30 {
		t.Errorf("Expected 30 points for ليلى, got %d", players["ليلى"].Progress.TotalScore)
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	repo := testStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
