package session

import (
	"os"
	"path/filepath"
	"testing"

	"sitewalk/internal/domain"
)

func TestSession_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := New(dir)
	s.SetCredentials("tok-123", domain.User{ID: "u1", Name: "Dana", Role: domain.RoleInspector})
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := New(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.Token() != "tok-123" {
		t.Errorf("Token = %q", reloaded.Token())
	}
	if reloaded.User().ID != "u1" {
		t.Errorf("User = %+v", reloaded.User())
	}
	if !reloaded.Authenticated() {
		t.Error("expected authenticated session")
	}
}

func TestSession_LoadMissingFile(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Load(); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if s.Authenticated() {
		t.Error("empty session should not be authenticated")
	}
}

func TestSession_ExpireClearsStateAndRunsHooks(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	s.SetCredentials("tok", domain.User{ID: "u1"})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	fired := false
	s.OnExpire(func() { fired = true })
	s.Expire()

	if s.Authenticated() {
		t.Error("session should be cleared")
	}
	if !fired {
		t.Error("expire hook did not run")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Error("session file should be deleted")
	}
}
