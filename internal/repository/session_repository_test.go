package repository

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumachat/chatcore/internal/domain"
)

func newTestRepo(t *testing.T) SessionRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(&SessionModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSessionRepository(db)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sess := &domain.Session{
		Token: "tok-1",
		User:  &domain.User{ID: 7, Username: "alice", Phone: "+12025550123"},
	}
	if err := repo.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Authenticated() {
		t.Fatalf("loaded session not authenticated: %+v", loaded)
	}
	if loaded.Token != "tok-1" || loaded.User.ID != 7 || loaded.User.Username != "alice" {
		t.Fatalf("roundtrip mismatch: %+v", loaded)
	}
}

func TestSaveOverwritesSingleRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := &domain.Session{Token: "tok-1", User: &domain.User{ID: 7, Username: "alice"}}
	second := &domain.Session{Token: "tok-2", User: &domain.User{ID: 8, Username: "bob"}}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Token != "tok-2" || loaded.User.Username != "bob" {
		t.Fatalf("expected the later session, got %+v", loaded)
	}
}

func TestLoadAbsentSnapshot(t *testing.T) {
	repo := newTestRepo(t)

	loaded, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatalf("expected nil session, got %+v", loaded)
	}
}

func TestClearRemovesSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sess := &domain.Session{Token: "tok-1", User: &domain.User{ID: 7, Username: "alice"}}
	if err := repo.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatalf("expected no session after clear, got %+v", loaded)
	}

	// Clearing twice is harmless.
	if err := repo.Clear(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSaveNilSessionIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Save(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}
