package permissions

import "testing"

func TestGlobalContainsAdmin(t *testing.T) {
	found := false
	for _, p := range Global() {
		if p == Admin {
			found = true
		}
	}
	if !found {
		t.Fatal("expected global permissions to contain admin")
	}
}

func TestGlobalHasNoDuplicates(t *testing.T) {
	seen := make(map[string]struct{})
	for _, p := range Global() {
		if _, dup := seen[p]; dup {
			t.Fatalf("duplicate global permission %q", p)
		}
		seen[p] = struct{}{}
	}
}

func TestIsGlobal(t *testing.T) {
	if !IsGlobal(ScanExecution) {
		t.Fatal("expected scan to be a global permission")
	}
	if IsGlobal(CodeViewer) {
		t.Fatal("expected codeviewer to be project-scoped")
	}
}

func TestDefaultTemplateGrantsAreDisjoint(t *testing.T) {
	anyone := make(map[string]struct{})
	for _, p := range DefaultTemplateAnyoneGrants() {
		anyone[p] = struct{}{}
	}
	for _, p := range DefaultTemplateGroupGrants() {
		if _, overlap := anyone[p]; overlap {
			t.Fatalf("permission %q granted to both targets", p)
		}
	}
}
