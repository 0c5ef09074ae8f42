package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"prepwise/internal/db"
	"prepwise/internal/model"
	"prepwise/internal/store"
)

// newStore connects to DATABASE_URL or skips.
func newStore(t *testing.T) *store.Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPostgresPool(ctx, url)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	s := store.New(pool)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestSettings_DefaultsThenUpsert(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	userID := "test-" + uuid.NewString()

	got, err := s.GetSettings(ctx, userID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got != model.DefaultSettings() {
		t.Errorf("defaults = %+v", got)
	}

	saved, err := s.SaveSettings(ctx, userID, model.Settings{CalendarSync: true, DataSharing: true})
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	got, err = s.GetSettings(ctx, userID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.EmailNotifications || !got.CalendarSync || !got.DataSharing || got.PracticeReminders {
		t.Errorf("after save = %+v", got)
	}
}

func TestMockInterviews_CreateListStats(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	userID := "test-" + uuid.NewString()

	for _, typ := range []string{"technical", "behavioral"} {
		_, err := s.CreateMockInterview(ctx, model.MockInterview{
			ID:         uuid.NewString(),
			UserID:     userID,
			Type:       typ,
			Difficulty: "medium",
		})
		if err != nil {
			t.Fatalf("CreateMockInterview: %v", err)
		}
	}

	list, err := s.ListMockInterviews(ctx, userID)
	if err != nil {
		t.Fatalf("ListMockInterviews: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Status != "pending" || list[0].Score != nil {
		t.Errorf("list[0] = %+v", list[0])
	}

	st, err := s.Stats(ctx, userID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalInterviews != 2 || st.AverageScore != 0 || st.PracticeMinutes != 0 {
		t.Errorf("Stats = %+v", st)
	}
}
