package testhelper

import (
	"context"
	"testing"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT count(*) FROM information_schema.tables WHERE table_name IN ('translations', 'build_runs')`,
	).Scan(&n)
	if err != nil {
		t.Fatalf("query schema: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 migrated tables, got %d", n)
	}
}
