package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/productos/internal/apperr"
	"github.com/starford/productos/internal/markdown"
	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/storage"
)

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Path             string   `json:"path"`
	Products         int      `json:"products"`
	Entities         int      `json:"entities"`
	FoldersUpdated   int      `json:"foldersUpdated"`
	FilesRegenerated int      `json:"filesRegenerated"`
	Orphans          []string `json:"orphans"`
	Errors           []string `json:"errors"`
}

// syncLog buffers the lines of one pass and appends them to logs/sync.log.
type syncLog struct {
	file   string
	lines  []string
	logger *slog.Logger
	now    func() time.Time
}

func (l *syncLog) log(msg string) {
	l.lines = append(l.lines, fmt.Sprintf("[%s] %s", models.Timestamp(l.now()), msg))
	l.logger.Info("sync: " + msg)
}

func (l *syncLog) flush() {
	if len(l.lines) == 0 {
		return
	}
	err := os.MkdirAll(filepath.Dir(l.file), 0o755)
	if err == nil {
		var f *os.File
		f, err = os.OpenFile(l.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			_, err = f.WriteString(strings.Join(l.lines, "\n") + "\n\n")
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
	}
	if err != nil {
		l.logger.Warn("sync: write log file", slog.String("error", err.Error()))
	}
}

// now is swapped in tests for stable log timestamps.
var now = time.Now

// Sync fills gaps between the database and the workspace: every product
// gets a structured folder with a current sidecar and every entity without
// a file gets one. Existing entity files are never rewritten. Per-item
// failures are logged and the pass continues.
func (m *Manager) Sync() (*SyncReport, error) {
	root := m.Path()
	if root == "" {
		m.logger.Info("sync: no workspace configured, skipping")
		return nil, fmt.Errorf("workspace: sync: %w", apperr.ErrNoWorkspace)
	}
	db, err := m.Store()
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Path: root, Orphans: []string{}, Errors: []string{}}
	runLog := &syncLog{file: filepath.Join(root, SyncLogFile), logger: m.logger, now: now}
	defer runLog.flush()

	fail := func(msg string) {
		runLog.log("Sync error: " + msg)
		report.Errors = append(report.Errors, msg)
	}

	runLog.log("Starting workspace sync...")

	products, err := db.ListProducts()
	if err != nil {
		fail(err.Error())
		return report, nil
	}
	report.Products = len(products)

	for i := range products {
		p := &products[i]
		res, err := m.folders.Ensure(p, root)
		ensured := err == nil
		if !ensured {
			fail(fmt.Sprintf("product %s: %v", p.ID, err))
		} else if res.Created {
			runLog.log(fmt.Sprintf("Created/updated folder structure for product: %s (%s)", p.Name, res.FolderName))
			report.FoldersUpdated++
		}

		entities, err := db.ListEntities(p.ID, models.EntityFilters{})
		if err != nil {
			fail(fmt.Sprintf("list entities of %s: %v", p.ID, err))
			continue
		}
		report.Entities += len(entities)
		if !ensured {
			continue
		}

		for j := range entities {
			e := &entities[j]
			if m.writer.Exists(e, root) {
				continue
			}
			if err := m.writer.Write(db, e, root); err != nil {
				fail(err.Error())
				continue
			}
			label := e.Title
			if label == "" {
				label = e.ID
			}
			runLog.log(fmt.Sprintf("Regenerated markdown for %s: %s", e.Type, label))
			report.FilesRegenerated++
		}
	}

	runLog.log(fmt.Sprintf("Sync complete: %d products, %d entities checked", report.Products, report.Entities))
	if report.FoldersUpdated > 0 || report.FilesRegenerated > 0 {
		runLog.log(fmt.Sprintf("Created/updated: %d product folders, %d markdown files", report.FoldersUpdated, report.FilesRegenerated))
	} else {
		runLog.log("All files up to date")
	}

	orphans, err := m.orphans(root)
	if err != nil {
		fail(err.Error())
	}
	for _, o := range orphans {
		runLog.log("Orphaned markdown file: " + o)
	}
	report.Orphans = append(report.Orphans, orphans...)
	return report, nil
}

// orphans lists entity files whose id has no database row. They are
// reported only; hand-written files are never deleted.
func (m *Manager) orphans(root string) ([]string, error) {
	db, err := m.Store()
	if err != nil {
		return nil, err
	}
	if !dirExists(filepath.Join(root, ProductsDir)) {
		return nil, nil
	}
	fsys, err := storage.Open(root)
	if err != nil {
		return nil, err
	}
	files, err := fsys.List(ProductsDir)
	if err != nil {
		return nil, err
	}
	ids, err := db.AllEntityIDs()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, rel := range files {
		// products/<folder>/entities/<type>/<id>.md
		parts := strings.Split(rel, "/")
		if len(parts) != 5 || parts[2] != "entities" {
			continue
		}
		data, err := fsys.Read(rel)
		if err != nil {
			continue
		}
		id := markdown.EntityID(data)
		if id == "" {
			id = strings.TrimSuffix(path.Base(rel), ".md")
		}
		if _, ok := ids[id]; !ok {
			out = append(out, rel)
		}
	}
	return out, nil
}
