package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	logAdapter "github.com/bft-labs/embedredis/internal/adapters/log"
	"github.com/bft-labs/embedredis/internal/domain"
)

func newTestManager(t *testing.T, root string) *DirectoryManager {
	t.Helper()
	return NewDirectoryManager(root, NewFileProtection(), logAdapter.Discard())
}

func TestDirectoryManager_IsEphemeral(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t, root)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root itself", root, false},
		{"root with trailing separator", root + string(filepath.Separator), false},
		{"direct child", filepath.Join(root, "embedredis"), true},
		{"nested child", filepath.Join(root, "embedredis", "abc", "data"), true},
		{"sibling sharing prefix", root + "-other", false},
		{"parent of root", filepath.Dir(root), false},
		{"child via dot-dot escape", filepath.Join(root, "a", "..", "..", "x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.IsEphemeral(tt.path); got != tt.want {
				t.Errorf("IsEphemeral(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDirectoryManager_IsEphemeral_ResolvedRoot(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "tmp-link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	m := newTestManager(t, link)

	if !m.IsEphemeral(filepath.Join(link, "x")) {
		t.Error("path below configured root not ephemeral")
	}
	resolved, err := filepath.EvalSymlinks(real)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsEphemeral(filepath.Join(resolved, "x")) {
		t.Error("path below resolved root not ephemeral")
	}
}

func TestDirectoryManager_EnsureDirectory(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t, root)
	path := filepath.Join(root, "a", "b")

	for i := 0; i < 2; i++ {
		dir, err := m.EnsureDirectory(path)
		if err != nil {
			t.Fatalf("EnsureDirectory() #%d error = %v", i+1, err)
		}
		if dir.Path != path {
			t.Errorf("Path = %s, want %s", dir.Path, path)
		}
		if !dir.Ephemeral {
			t.Error("Ephemeral = false, want true")
		}
	}
}

func TestDirectoryManager_EnsureDirectory_FileInTheWay(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t, root)
	path := filepath.Join(root, "occupied")
	writeFile(t, path, "not a dir")

	_, err := m.EnsureDirectory(path)

	var dirErr *domain.DirectoryError
	if !errors.As(err, &dirErr) {
		t.Fatalf("EnsureDirectory() error = %v, want *DirectoryError", err)
	}
	if !errors.Is(err, domain.ErrDirectory) {
		t.Error("errors.Is(err, ErrDirectory) = false")
	}
	if dirErr.Path != path {
		t.Errorf("Path = %s, want %s", dirErr.Path, path)
	}
}

func TestDirectoryManager_ResetIfEphemeral(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t, filepath.Join(root, "tmp"))

	ephemeral := filepath.Join(root, "tmp", "data")
	writeFile(t, filepath.Join(ephemeral, "dump.rdb"), "old")
	persistent := filepath.Join(root, "persistent")
	writeFile(t, filepath.Join(persistent, "dump.rdb"), "keep")

	if err := m.ResetIfEphemeral(ephemeral); err != nil {
		t.Fatalf("ResetIfEphemeral(ephemeral) error = %v", err)
	}
	if err := m.ResetIfEphemeral(persistent); err != nil {
		t.Fatalf("ResetIfEphemeral(persistent) error = %v", err)
	}

	if _, err := os.Stat(ephemeral); !os.IsNotExist(err) {
		t.Errorf("ephemeral directory survived reset: %v", err)
	}
	if _, err := os.Stat(filepath.Join(persistent, "dump.rdb")); err != nil {
		t.Errorf("persistent directory was touched: %v", err)
	}
}

func TestDirectoryManager_ResolveAndPrepare(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t, root)
	base := filepath.Join(root, "embedredis", "id")

	set, err := m.Resolve(domain.DirectoryPaths{
		Base: base,
		Data: filepath.Join(base, "data"),
		Temp: filepath.Join(base, "tmp"),
		Lib:  filepath.Join(base, "lib"),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for _, d := range set.All() {
		if !d.Ephemeral {
			t.Errorf("%s not ephemeral", d.Path)
		}
		if _, err := os.Stat(d.Path); !os.IsNotExist(err) {
			t.Errorf("Resolve created %s", d.Path)
		}
	}

	writeFile(t, filepath.Join(set.Data.Path, "stale.rdb"), "stale")

	if err := m.Prepare(set); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	for _, d := range set.All() {
		if info, err := os.Stat(d.Path); err != nil || !info.IsDir() {
			t.Errorf("%s not a directory after Prepare: %v", d.Path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(set.Data.Path, "stale.rdb")); !os.IsNotExist(err) {
		t.Errorf("stale data survived Prepare: %v", err)
	}
}

func TestDirectorySet_AllOrder(t *testing.T) {
	set := domain.DirectorySet{
		Base: domain.Directory{Path: "base"},
		Data: domain.Directory{Path: "data"},
		Temp: domain.Directory{Path: "tmp"},
		Lib:  domain.Directory{Path: "lib"},
	}

	all := set.All()
	want := []string{"data", "tmp", "lib", "base"}
	for i, d := range all {
		if d.Path != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, d.Path, want[i])
		}
	}
}
