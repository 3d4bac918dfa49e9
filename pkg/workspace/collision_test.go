package workspace

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDirName(t *testing.T) {
	ts := time.Date(2024, time.September, 1, 13, 8, 45, 0, time.UTC)

	if got := DirName(ts); got != "01_Sep_2024_1308" {
		t.Fatalf("DirName() got %s, want 01_Sep_2024_1308", got)
	}
}

func TestAvoidCollision(t *testing.T) {
	collisionTests := []struct {
		name     string
		path     string
		exists   bool
		existing []string
		want     string
	}{
		{"non-existent path", "01_Sep_2024_1308", false, nil, "01_Sep_2024_1308"},
		{"existing path", "01_Sep_2024_1307", true, nil, "01_Sep_2024_1307_01"},
		{"several collisions", "01_Sep_2024_1307", true, []string{"01_Sep_2024_1307_01", "01_Sep_2024_1307_02"}, "01_Sep_2024_1307_03"},
		{"suffixes are replaced", "01_Sep_2024_1307_01", true, []string{"01_Sep_2024_1307_01"}, "01_Sep_2024_1307_02"},
		{"two digit counters", "01_Sep_2024_1307", true, numbered("01_Sep_2024_1307", 11), "01_Sep_2024_1307_12"},
		{"parent directories", "/var/www_data/01_Sep_2024_1307", true, nil, "/var/www_data/01_Sep_2024_1307_01"},
		{"resolved path is unchanged", "01_Sep_2024_1307_01", false, nil, "01_Sep_2024_1307_01"},
	}

	for _, tt := range collisionTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AvoidCollision(tt.path, tt.exists, existsIn(tt.existing))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("AvoidCollision(%#v) got %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestAvoidCollisionIsIdempotent(t *testing.T) {
	existing := existsIn([]string{"01_Sep_2024_1307"})
	resolved, err := AvoidCollision("01_Sep_2024_1307", true, existing)
	if err != nil {
		t.Fatal(err)
	}

	again, err := AvoidCollision(resolved, existing(resolved), existing)
	if err != nil {
		t.Fatal(err)
	}
	if again != resolved {
		t.Fatalf("AvoidCollision(%#v) got %#v, want it unchanged", resolved, again)
	}
}

func TestAvoidCollisionWithInvalidFormat(t *testing.T) {
	for _, path := range []string{"01_Sep_2024", "workspace", "", "/var/www_a_b_c/01_Sep"} {
		for _, exists := range []bool{true, false} {
			_, err := AvoidCollision(path, exists, existsIn(nil))

			var formatErr *FolderFormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("AvoidCollision(%#v, %v) got %v, want a FolderFormatError", path, exists, err)
			}
		}
	}
}

func TestAvoidCollisionExhausted(t *testing.T) {
	_, err := AvoidCollision("01_Sep_2024_1307", true, func(string) bool { return true })

	if !errors.Is(err, ErrCollisionsExhausted) {
		t.Fatalf("got %v, want ErrCollisionsExhausted", err)
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()

	if !pathExists(dir) {
		t.Errorf("pathExists(%#v) got false", dir)
	}
	if pathExists(filepath.Join(dir, "missing")) {
		t.Errorf("pathExists() of missing path got true")
	}
}

func existsIn(paths []string) func(string) bool {
	m := map[string]bool{}
	for _, p := range paths {
		m[p] = true
	}
	return func(p string) bool {
		return m[p]
	}
}

func numbered(base string, n int) []string {
	paths := []string{}
	for i := 1; i <= n; i++ {
		paths = append(paths, base+"_"+twoDigits(i))
	}
	return paths
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + i/10), byte('0' + i%10)})
}
