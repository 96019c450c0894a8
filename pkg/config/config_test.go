package config

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edbgstack.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	v, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != currentSchemaVersion {
		t.Fatalf("got schema version %d, want %d", v, currentSchemaVersion)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestBootstrap_CreatesDefaultProfileOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	needs, err := db.NeedsBootstrap(ctx)
	if err != nil {
		t.Fatalf("NeedsBootstrap: %v", err)
	}
	if !needs {
		t.Fatal("expected a freshly migrated database to need bootstrap")
	}

	if err := db.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	needs, err = db.NeedsBootstrap(ctx)
	if err != nil {
		t.Fatalf("NeedsBootstrap after bootstrap: %v", err)
	}
	if needs {
		t.Error("expected bootstrap to be a one-time operation")
	}

	active, err := db.Profiles().GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.Stack != DefaultStackDescription {
		t.Errorf("got stack %q, want %q", active.Stack, DefaultStackDescription)
	}
	if !active.IsActive {
		t.Error("expected bootstrapped profile to be active")
	}

	if err := db.Bootstrap(ctx); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	profiles, err := db.Profiles().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(profiles) != 1 {
		t.Errorf("got %d profiles after repeated Bootstrap, want 1", len(profiles))
	}
}

func TestProfileStore_CreateGetUpdateDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Profiles()

	p := &Profile{
		Name:        "bench",
		Stack:       "ascii,term,raw",
		AdapterType: "loop",
		BridgeHost:  "127.0.0.1",
		BridgePort:  6000,
		TimeoutMs:   500,
	}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected Create to populate the new profile's ID")
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "bench" || got.Stack != "ascii,term,raw" {
		t.Errorf("got %+v", got)
	}

	byName, err := store.GetByName(ctx, "bench")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName.ID != p.ID {
		t.Errorf("GetByName returned a different profile")
	}

	got.BridgePort = 7000
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	reloaded, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get after Update: %v", err)
	}
	if reloaded.BridgePort != 7000 {
		t.Errorf("got bridge port %d, want 7000", reloaded.BridgePort)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, p.ID); err != ErrProfileNotFound {
		t.Errorf("got %v, want ErrProfileNotFound", err)
	}
}

func TestProfileStore_SetActiveIsExclusive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Profiles()

	a := &Profile{Name: "a", Stack: "raw", AdapterType: "loop", BridgeHost: "0.0.0.0", BridgePort: 1, TimeoutMs: 1, IsActive: true}
	b := &Profile{Name: "b", Stack: "raw", AdapterType: "loop", BridgeHost: "0.0.0.0", BridgePort: 2, TimeoutMs: 1}
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := store.Create(ctx, b); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if err := store.SetActive(ctx, b.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	active, err := store.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.ID != b.ID {
		t.Errorf("got active profile %d, want %d", active.ID, b.ID)
	}
}

func TestProfileStore_SetActiveUnknownID(t *testing.T) {
	db := openTestDB(t)
	if err := db.Profiles().SetActive(context.Background(), 999); err != ErrProfileNotFound {
		t.Errorf("got %v, want ErrProfileNotFound", err)
	}
}

func TestValidator_ValidateProfile(t *testing.T) {
	v := NewValidator()

	err := v.ValidateProfile(map[string]any{
		"name":  "default",
		"stack": "ascii,term,raw",
	})
	if err != nil {
		t.Errorf("expected a minimal valid profile to pass, got: %v", err)
	}

	err = v.ValidateProfile(map[string]any{
		"name": "missing stack",
	})
	if err == nil {
		t.Error("expected validation error for a profile missing the required stack field")
	}

	err = v.ValidateProfile(map[string]any{
		"name":         "bad adapter",
		"stack":        "raw",
		"adapter_type": "bluetooth",
	})
	if err == nil {
		t.Error("expected validation error for an adapter_type outside the enum")
	}

	err = v.ValidateProfile(map[string]any{
		"name":        "bad port",
		"stack":       "raw",
		"bridge_port": float64(70000),
	})
	if err == nil {
		t.Error("expected validation error for a bridge_port above 65535")
	}
}
