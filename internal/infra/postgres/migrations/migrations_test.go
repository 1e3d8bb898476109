package migrations

import "testing"

func TestMigrationsDiscovered(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(sorted))
	}
	m := sorted[0]
	if m.Name != "20241122010000" {
		t.Fatalf("unexpected migration name %q", m.Name)
	}
	if m.Up == nil || m.Down == nil {
		t.Fatalf("expected both up and down for %s", m.Name)
	}
}
