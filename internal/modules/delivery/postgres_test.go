// README: DB-backed delivery store tests; skipped without PARCELO_TEST_DSN.
package delivery

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("PARCELO_TEST_DSN")
	if dsn == "" {
		t.Skip("PARCELO_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE delivery_history, confirmation_codes, location_samples, deliveries CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewPostgresStore(db)
}

func TestPostgresStatusCAS(t *testing.T) {
	store := setupPostgresStore(t)
	svc := NewService(store)
	ctx := context.Background()

	id := mustCreateDelivery(t, svc, "req_db")

	ok, err := store.UpdateStatus(ctx, id, StatusPending, StatusAccepted, 0, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("expected first CAS to win")
	}

	// Stale version must lose.
	ok, err = store.UpdateStatus(ctx, id, StatusPending, StatusCancelled, 0, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok {
		t.Fatal("expected stale CAS to lose")
	}

	d, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Status != StatusAccepted || d.StatusVersion != 1 {
		t.Fatalf("unexpected state: status=%s version=%d", d.Status, d.StatusVersion)
	}
}

func TestPostgresHistoryOrdering(t *testing.T) {
	store := setupPostgresStore(t)
	svc := NewService(store)
	ctx := context.Background()

	id := mustCreateDelivery(t, svc, "req_db_hist")
	if _, err := svc.Accept(ctx, AcceptCommand{DeliveryID: id, CarrierID: "car_db"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Transition(ctx, TransitionCommand{
		DeliveryID: id, To: StatusPickedUp, ActorRole: RoleCarrier, ActorID: "car_db",
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history entries = %d, want 3", len(history))
	}
	wantTo := []Status{StatusPending, StatusAccepted, StatusPickedUp}
	for i, e := range history {
		if e.ToStatus != wantTo[i] {
			t.Errorf("history[%d].ToStatus = %s, want %s", i, e.ToStatus, wantTo[i])
		}
	}
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
