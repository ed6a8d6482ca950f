// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"testing"
)

func TestList_CollectsAllMatchesInProviderOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	exeA := fakeInterpreter(t, first, "python3.12", 3, 12, 1)
	exeB := fakeInterpreter(t, second, "python3.11", 3, 11, 9)

	found, err := List(context.Background(), "python3", Options{Env: testEnv(t, first, second)})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("List() returned %d interpreters, want 2", len(found))
	}
	if found[0].Executable != exeA || found[1].Executable != exeB {
		t.Errorf("List() order = [%s, %s], want PATH order [%s, %s]",
			found[0].Executable, found[1].Executable, exeA, exeB)
	}
}

func TestList_SpecFilters(t *testing.T) {
	bin := t.TempDir()
	fakeInterpreter(t, bin, "python3.12", 3, 12, 1)
	fakeInterpreter(t, bin, "python3.11", 3, 11, 9)

	found, err := List(context.Background(), "python3.12", Options{Env: testEnv(t, bin)})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("List(python3.12) returned %d interpreters, want 1", len(found))
	}
	if got := found[0].VersionInfo.VersionText(); got != "3.12.1" {
		t.Errorf("version = %q", got)
	}
}

func TestList_ParseError(t *testing.T) {
	if _, err := List(context.Background(), ">=", Options{Env: testEnv(t)}); err == nil {
		t.Error("malformed spec did not error")
	}
}
