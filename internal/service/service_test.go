package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/productos/internal/apperr"
	"github.com/starford/productos/internal/markdown"
	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/sse"
	"github.com/starford/productos/internal/store"
	"github.com/starford/productos/internal/testutil"
	"github.com/starford/productos/internal/workspace"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type)
}

func (r *recorder) PublishEntityChange(c sse.EntityChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "entity."+string(c.Kind)+":"+c.ID)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newService(t *testing.T) (*Service, string, *recorder) {
	t.Helper()
	m, root := testutil.TestWorkspace(t)
	rec := &recorder{}
	return NewService(m, rec, testutil.Logger()), root, rec
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func strPtr(s string) *string { return &s }

func TestCreateEntityWritesFile(t *testing.T) {
	svc, root, rec := newService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "SidelineHD", nil)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "products", "SidelineHD", "product.json"))

	persona, err := svc.Workspace().DB().CreatePersona(p.ID, "Coach")
	require.NoError(t, err)

	e, err := svc.CreateEntity(ctx, store.EntityCreate{
		ProductID:  p.ID,
		Type:       models.TypeProblem,
		Title:      "Users churn",
		PersonaIDs: []string{persona.ID},
	})
	require.NoError(t, err)

	path := filepath.Join(root, "products", "SidelineHD", "entities", "problems", e.ID+".md")
	content := readFile(t, path)
	assert.Contains(t, content, "---\nid: "+e.ID+"\ntype: problem\ntitle: Users churn\nstatus: active\n")
	assert.Contains(t, content, "context:\n  personas: [Coach]\n---\n\n")
	assert.Contains(t, rec.list(), "entity.written:"+e.ID)
	assert.Contains(t, rec.list(), sse.TypeProductChanged)

	settings, err := svc.Workspace().DB().Settings()
	require.NoError(t, err)
	require.NotNil(t, settings.LastProductID)
	assert.Equal(t, p.ID, *settings.LastProductID)
}

func TestCreateEntityUnknownProduct(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.CreateEntity(context.Background(), store.EntityCreate{
		ProductID: "prod_missing00000",
		Type:      models.TypeCapture,
		Title:     "Orphan",
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdateEntityRewritesFile(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "Alpha", nil)
	require.NoError(t, err)
	e, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeHypothesis, Title: "Faster onboarding"})
	require.NoError(t, err)

	_, err = svc.UpdateEntity(ctx, e.ID, store.EntityUpdate{
		Body:     strPtr("We believe.\n"),
		Metadata: map[string]any{"confidence": "high"},
	})
	require.NoError(t, err)

	content := readFile(t, filepath.Join(root, "products", "Alpha", "entities", "hypotheses", e.ID+".md"))
	assert.Contains(t, content, "confidence: high\n")
	assert.Contains(t, content, "---\n\nWe believe.\n")
}

func TestRelationshipRewritesSourceFile(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "Alpha", nil)
	require.NoError(t, err)
	problem, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeProblem, Title: "Churn"})
	require.NoError(t, err)
	hyp, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeHypothesis, Title: "Onboarding: too long"})
	require.NoError(t, err)

	r, err := svc.CreateRelationship(ctx, store.RelationshipCreate{
		ProductID:        p.ID,
		SourceID:         hyp.ID,
		TargetID:         problem.ID,
		RelationshipType: strPtr("addresses"),
	})
	require.NoError(t, err)

	hypPath := filepath.Join(root, "products", "Alpha", "entities", "hypotheses", hyp.ID+".md")
	want := "links:\n  - target_id: " + problem.ID + "\n    type: problem\n    title: Churn\n    relationship: addresses\n---"
	assert.Contains(t, readFile(t, hypPath), want)

	rels, err := svc.Relationships(ctx, problem.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, models.Incoming, rels[0].Direction)

	// Renaming the target updates the title in the linking file.
	_, err = svc.UpdateEntity(ctx, problem.ID, store.EntityUpdate{Title: strPtr("Users churn")})
	require.NoError(t, err)
	assert.Contains(t, readFile(t, hypPath), "    title: Users churn\n")

	_, err = svc.CreateRelationship(ctx, store.RelationshipCreate{ProductID: p.ID, SourceID: hyp.ID, TargetID: problem.ID})
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))

	require.NoError(t, svc.DeleteRelationship(ctx, r.ID))
	assert.NotContains(t, readFile(t, hypPath), "links:")
}

func TestDeleteEntityRemovesFileAndLinks(t *testing.T) {
	svc, root, rec := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "Alpha", nil)
	require.NoError(t, err)
	problem, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeProblem, Title: "Churn"})
	require.NoError(t, err)
	dec, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeDecision, Title: "Ship it"})
	require.NoError(t, err)
	_, err = svc.CreateRelationship(ctx, store.RelationshipCreate{ProductID: p.ID, SourceID: dec.ID, TargetID: problem.ID})
	require.NoError(t, err)

	problemPath := filepath.Join(root, "products", "Alpha", "entities", "problems", problem.ID+".md")
	require.FileExists(t, problemPath)

	require.NoError(t, svc.DeleteEntity(ctx, problem.ID))
	assert.NoFileExists(t, problemPath)
	assert.NoDirExists(t, filepath.Dir(problemPath))
	assert.DirExists(t, filepath.Join(root, "products", "Alpha", "entities"))

	decPath := filepath.Join(root, "products", "Alpha", "entities", "decisions", dec.ID+".md")
	assert.NotContains(t, readFile(t, decPath), "links:")
	assert.Contains(t, rec.list(), "entity.deleted:"+problem.ID)

	_, err = svc.GetEntity(ctx, problem.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPromoteCaptureWritesBothFiles(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "Alpha", nil)
	require.NoError(t, err)
	capture, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeCapture, Title: "Idea"})
	require.NoError(t, err)

	promoted, err := svc.PromoteCapture(ctx, capture.ID, models.TypeProblem)
	require.NoError(t, err)

	entities := filepath.Join(root, "products", "Alpha", "entities")
	assert.Contains(t, readFile(t, filepath.Join(entities, "captures", capture.ID+".md")), "promoted_to: "+promoted.ID+"\n")
	assert.FileExists(t, filepath.Join(entities, "problems", promoted.ID+".md"))
}

func TestUpdateProductRenamesFolder(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "Gamma", nil)
	require.NoError(t, err)
	e, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeCapture, Title: "Note"})
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, p.ID, store.ProductUpdate{Name: strPtr("Gamma Two")})
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(root, "products", "Gamma"))
	folder := filepath.Join(root, "products", "Gamma Two")
	assert.Contains(t, readFile(t, filepath.Join(folder, "product.json")), `"folder_name": "Gamma Two"`)
	assert.FileExists(t, filepath.Join(folder, "entities", "captures", e.ID+".md"))
}

func TestEntityMarkdownPrefersFile(t *testing.T) {
	svc, root, _ := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "Alpha", nil)
	require.NoError(t, err)
	e, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeCapture, Title: "Idea"})
	require.NoError(t, err)

	doc, err := svc.EntityMarkdown(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, doc.OnDisk)
	assert.Equal(t, "products/Alpha/entities/captures/"+e.ID+".md", filepath.ToSlash(doc.Path))

	path := filepath.Join(root, filepath.FromSlash(doc.Path))
	require.NoError(t, os.WriteFile(path, []byte("edited"), 0o644))
	doc, err = svc.EntityMarkdown(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", doc.Content)

	require.NoError(t, os.Remove(path))
	doc, err = svc.EntityMarkdown(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, doc.OnDisk)
	want, err := markdown.Render(e, svc.Workspace().DB())
	require.NoError(t, err)
	assert.Equal(t, want, doc.Content)

	rendered, err := svc.RenderEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, want, rendered)
}

func TestMigrateThenSync(t *testing.T) {
	svc, root, rec := newService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, "Alpha", nil)
	require.NoError(t, err)
	e, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeCapture, Title: "Idea"})
	require.NoError(t, err)

	target := filepath.Join(filepath.Dir(root), "moved")
	res := svc.Migrate(ctx, target)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, root, res.BackupPath)

	info := svc.Info(ctx)
	assert.Equal(t, target, info.Path)
	assert.True(t, info.Configured)
	assert.FileExists(t, filepath.Join(target, "products", "Alpha", "entities", "captures", e.ID+".md"))
	assert.Contains(t, rec.list(), sse.TypeWorkspaceMigrated)

	// Writes after the move land in the new workspace.
	e2, err := svc.CreateEntity(ctx, store.EntityCreate{ProductID: p.ID, Type: models.TypeCapture, Title: "Second"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "products", "Alpha", "entities", "captures", e2.ID+".md"))
	assert.NoFileExists(t, filepath.Join(root, "products", "Alpha", "entities", "captures", e2.ID+".md"))
}

func TestInitializeWorkspaceSyncs(t *testing.T) {
	tmp := t.TempDir()
	m := workspace.NewManager(workspace.Options{AppDataDir: filepath.Join(tmp, "appdata")}, nil, testutil.Logger())
	t.Cleanup(func() { m.Close() })
	_, err := m.Bootstrap()
	require.NoError(t, err)
	p, err := m.DB().CreateProduct("Alpha", nil)
	require.NoError(t, err)
	e, err := m.DB().CreateEntity(store.EntityCreate{ProductID: p.ID, Type: models.TypeCapture, Title: "Idea"})
	require.NoError(t, err)

	rec := &recorder{}
	svc := NewService(m, rec, testutil.Logger())
	root := filepath.Join(tmp, "workspace")
	report, err := svc.InitializeWorkspace(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, root, report.Path)
	assert.Equal(t, 1, report.FilesRegenerated)
	assert.FileExists(t, filepath.Join(root, "products", "Alpha", "entities", "captures", e.ID+".md"))
	assert.Contains(t, rec.list(), sse.TypeWorkspaceSynced)
}
