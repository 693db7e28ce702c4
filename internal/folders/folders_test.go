package folders

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/productos/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func product(id, name string) *models.Product {
	return &models.Product{
		ID:        id,
		Name:      name,
		CreatedAt: "2024-01-01T00:00:00.000Z",
		UpdatedAt: "2024-01-02T00:00:00.000Z",
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"SidelineHD":             "SidelineHD",
		"  A/B:C*D?  ":           "A-B-C-D-",
		"Tabs\tand\n\nlines":     "Tabs and lines",
		`quote"pipe|<angle>`:     "quote-pipe--angle-",
		strings.Repeat("x", 150): strings.Repeat("x", 100),
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeCountsUTF16Units(t *testing.T) {
	// Each rocket is a surrogate pair: 2 units, 4 bytes.
	rockets := strings.Repeat("\U0001F680", 60)
	if got := Sanitize(rockets); got != strings.Repeat("\U0001F680", 50) {
		t.Errorf("Sanitize(60 rockets) kept %d runes, want 50", len([]rune(got)))
	}

	// 99 units of ASCII leave room for half a pair only; the pair is dropped.
	odd := strings.Repeat("a", 99) + "\U0001F680" + "tail"
	if got := Sanitize(odd); got != strings.Repeat("a", 99) {
		t.Errorf("Sanitize(odd) = %q", got)
	}

	// BMP characters count one unit each, however many bytes they take.
	accents := strings.Repeat("é", 120)
	if got := Sanitize(accents); got != strings.Repeat("é", 100) {
		t.Errorf("Sanitize(accents) kept %d runes, want 100", len([]rune(got)))
	}
}

func TestResolveWithoutProductsDir(t *testing.T) {
	root := t.TempDir()
	if got := ResolveFolderName(product("prod_abcd12345678", "Alpha"), root, ""); got != "Alpha" {
		t.Errorf("got %q", got)
	}
}

func TestFolderCollisionDisambiguation(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())

	first := product("prod_aaaa11112222", "Alpha")
	second := product("prod_bbbb33334444", "Alpha")

	res, err := reg.Ensure(first, root)
	if err != nil {
		t.Fatalf("Ensure first: %v", err)
	}
	if res.FolderName != "Alpha" || !res.Created {
		t.Fatalf("first = %+v", res)
	}

	res, err = reg.Ensure(second, root)
	if err != nil {
		t.Fatalf("Ensure second: %v", err)
	}
	if res.FolderName != "Alpha_bbbb" {
		t.Errorf("second folder = %q, want Alpha_bbbb", res.FolderName)
	}

	// Case-insensitive clash.
	third := product("prod_cccc55556666", "ALPHA")
	if got := ResolveFolderName(third, root, ""); got != "ALPHA_cccc" {
		t.Errorf("third = %q", got)
	}

	// The owner resolves to its own folder without a suffix.
	if got := ResolveFolderName(first, root, ""); got != "Alpha" {
		t.Errorf("owner resolved to %q", got)
	}

	// Idempotent.
	if a, b := ResolveFolderName(third, root, ""), ResolveFolderName(third, root, ""); a != b {
		t.Errorf("not deterministic: %q vs %q", a, b)
	}
}

func TestMalformedSidecarForcesSuffixAndIsSkipped(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ProductsDir, "Beta")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, SidecarFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(quietLogger())
	p := product("prod_dddd77778888", "Beta")
	if _, ok := reg.Find(p.ID, root); ok {
		t.Error("malformed sidecar must not match")
	}
	if got := ResolveFolderName(p, root, ""); got != "Beta_dddd" {
		t.Errorf("got %q, want Beta_dddd", got)
	}
}

func TestRenameStability(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())
	p := product("prod_eeee99990000", "Gamma")
	if _, err := reg.Ensure(p, root); err != nil {
		t.Fatal(err)
	}

	p.Name = "Gamma Two"
	p.UpdatedAt = "2024-02-01T00:00:00.000Z"
	name, err := reg.Rename(p, root)
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if name != "Gamma Two" {
		t.Fatalf("renamed to %q", name)
	}
	if _, err := os.Stat(filepath.Join(root, ProductsDir, "Gamma")); !os.IsNotExist(err) {
		t.Error("old folder should be gone")
	}

	// Re-resolving with the current folder excluded yields the same name.
	if got := ResolveFolderName(p, root, "Gamma Two"); got != "Gamma Two" {
		t.Errorf("resolve after rename = %q", got)
	}
	// Without exclusion the sidecar still identifies the folder as ours.
	if got := ResolveFolderName(p, root, ""); got != "Gamma Two" {
		t.Errorf("resolve without exclude = %q", got)
	}

	sc, err := ReadSidecar(filepath.Join(root, ProductsDir, "Gamma Two"))
	if err != nil {
		t.Fatalf("ReadSidecar: %v", err)
	}
	if sc.FolderName != "Gamma Two" || sc.Name != "Gamma Two" || sc.UpdatedAt != p.UpdatedAt {
		t.Errorf("sidecar = %+v", sc)
	}
}

func TestRenameFolderNoop(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())
	p := product("prod_ffff00001111", "Delta")
	_, _ = reg.Ensure(p, root)
	old := filepath.Join(root, ProductsDir, "Delta")
	got, err := reg.RenameFolder(old, "Delta", root)
	if err != nil || got != old {
		t.Errorf("RenameFolder = %q, %v", got, err)
	}
}

func TestRenameFolderMovesContents(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())
	p := product("prod_ffff22223333", "Theta")
	if _, err := reg.Ensure(p, root); err != nil {
		t.Fatal(err)
	}
	old := filepath.Join(root, ProductsDir, "Theta")
	got, err := reg.RenameFolder(old, "Iota", root)
	if err != nil {
		t.Fatalf("RenameFolder: %v", err)
	}
	if got != filepath.Join(root, ProductsDir, "Iota") {
		t.Errorf("RenameFolder = %q", got)
	}
	if _, err := os.Stat(filepath.Join(got, "entities", "problems")); err != nil {
		t.Errorf("entity folders not moved: %v", err)
	}
	if name, ok := reg.Find(p.ID, root); !ok || name != "Iota" {
		t.Errorf("Find = %q, %v", name, ok)
	}

	if _, err := reg.RenameFolder(filepath.Join(root, ProductsDir, "Missing"), "Other", root); err == nil {
		t.Error("expected error renaming a missing folder")
	}
}

func TestEnsureRejectsFileInPlaceOfFolder(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())
	p := product("prod_4444bbbb0000", "Kappa")
	entities := filepath.Join(root, ProductsDir, "Kappa", "entities")
	if err := os.MkdirAll(entities, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(entities, "problems"), []byte("not a folder"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := reg.Ensure(p, root)
	if err == nil || !strings.Contains(err.Error(), "is not a directory") {
		t.Fatalf("Ensure = %v, want not-a-directory error", err)
	}
	if _, statErr := ReadSidecar(filepath.Join(root, ProductsDir, "Kappa")); statErr == nil {
		t.Error("sidecar must not be written for a broken folder")
	}
}

func TestSidecarFormat(t *testing.T) {
	p := product("prod_abc", "A & <B>")
	data, err := MarshalSidecar(SidecarFor(p, "A & -B-"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{
  "id": "prod_abc",
  "name": "A & <B>",
  "description": null,
  "folder_name": "A & -B-",
  "created_at": "2024-01-01T00:00:00.000Z",
  "updated_at": "2024-01-02T00:00:00.000Z"
}`
	if string(data) != want {
		t.Errorf("sidecar =\n%s\nwant\n%s", data, want)
	}
}

func TestEnsureRewritesStaleSidecarOnly(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())
	p := product("prod_1234abcd0000", "Eps")
	if _, err := reg.Ensure(p, root); err != nil {
		t.Fatal(err)
	}
	res, err := reg.Ensure(p, root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created {
		t.Error("second Ensure should be a no-op")
	}
	for _, sub := range models.EntityFolders() {
		if _, err := os.Stat(filepath.Join(root, ProductsDir, "Eps", "entities", sub)); err != nil {
			t.Errorf("missing %s: %v", sub, err)
		}
	}

	desc := "now described"
	p.Description = &desc
	res, _ = reg.Ensure(p, root)
	if !res.Created {
		t.Error("description change should rewrite the sidecar")
	}
}

func TestFindSeesExternalRename(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())
	p := product("prod_9999aaaa0000", "Zeta")
	_, _ = reg.Ensure(p, root)

	if err := os.Rename(filepath.Join(root, ProductsDir, "Zeta"), filepath.Join(root, ProductsDir, "Renamed")); err != nil {
		t.Fatal(err)
	}
	name, ok := reg.Find(p.ID, root)
	if !ok || name != "Renamed" {
		t.Errorf("Find = %q, %v", name, ok)
	}
}

func TestWatchInvalidatesCache(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(quietLogger())
	p := product("prod_7777bbbb0000", "Eta")
	_, _ = reg.Ensure(p, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan string, 8)
	go Watch(ctx, reg, root, quietLogger(), func(name string) { changed <- name })

	time.Sleep(100 * time.Millisecond)
	if err := os.MkdirAll(filepath.Join(root, ProductsDir, "Other"), 0o755); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the new folder")
	}
	reg.mu.Lock()
	n := len(reg.cache)
	reg.mu.Unlock()
	if n != 0 {
		t.Errorf("cache size = %d, want 0", n)
	}
}
