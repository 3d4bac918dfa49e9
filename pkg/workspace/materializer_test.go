package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"

	"github.com/bigkevmcd/host-deployer/pkg/git"
)

var testNow = time.Date(2024, time.September, 1, 13, 8, 0, 0, time.UTC)

var testOptions = git.CloneOptions{
	URL:    "https://github.com/example/example.git",
	Branch: "main",
	Token:  "test-token",
}

func TestMaterialize(t *testing.T) {
	root := t.TempDir()
	cloner := git.NewMockCloner(writeReadme)
	m := makeMaterializer(t, cloner, root)

	ws, err := m.Materialize(context.Background(), testOptions)
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, "01_Sep_2024_1308")
	if ws != want {
		t.Fatalf("Materialize() got %s, want %s", ws, want)
	}
	if diff := cmp.Diff([]git.CloneOptions{testOptions}, cloner.Options); diff != "" {
		t.Fatalf("incorrect clone options:\n%s", diff)
	}
}

func TestMaterializeWithExistingWorkspaces(t *testing.T) {
	root := t.TempDir()
	cloner := git.NewMockCloner(writeReadme)
	m := makeMaterializer(t, cloner, root)

	var workspaces []string
	for i := 0; i < 3; i++ {
		ws, err := m.Materialize(context.Background(), testOptions)
		if err != nil {
			t.Fatal(err)
		}
		workspaces = append(workspaces, ws)
	}

	want := []string{
		filepath.Join(root, "01_Sep_2024_1308"),
		filepath.Join(root, "01_Sep_2024_1308_01"),
		filepath.Join(root, "01_Sep_2024_1308_02"),
	}
	if diff := cmp.Diff(want, workspaces); diff != "" {
		t.Fatalf("incorrect workspaces:\n%s", diff)
	}
}

func TestMaterializeWithCloneFailure(t *testing.T) {
	cloner := git.NewMockCloner(nil)
	failure := errors.New("authentication required")
	cloner.FailWithError(failure)
	m := makeMaterializer(t, cloner, t.TempDir())

	_, err := m.Materialize(context.Background(), testOptions)
	if err != failure {
		t.Fatalf("got %v, want %v", err, failure)
	}
}

func makeMaterializer(t *testing.T, c git.Cloner, root string) *Materializer {
	m := New(c, root, testr.New(t))
	m.now = func() time.Time {
		return testNow
	}
	return m
}

func writeReadme(dest string) error {
	return os.WriteFile(filepath.Join(dest, "README.md"), []byte("testing"), 0644)
}
