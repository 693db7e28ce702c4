// Package markdown renders entities into their Markdown mirror files and
// reads the frontmatter back.
//
// Rendering is deterministic: the same entity and the same related rows
// always produce byte-identical output.
package markdown

import (
	"fmt"
	"strings"

	"github.com/starford/productos/internal/models"
)

// Lookup resolves the related rows an entity file shows.
type Lookup interface {
	PersonaNames(ids []string) ([]string, error)
	FeatureNames(ids []string) ([]string, error)
	DimensionGroups(ids []string) ([]models.DimensionGroup, error)
	OutgoingLinks(entityID string) ([]models.ResolvedLink, error)
}

// Context is everything besides the entity row that appears in its file.
type Context struct {
	Personas   []string
	Features   []string
	Dimensions []models.DimensionGroup
	Links      []models.ResolvedLink
}

func (c *Context) hasTags() bool {
	return len(c.Personas) > 0 || len(c.Features) > 0 || len(c.Dimensions) > 0
}

// Resolve loads the context of e through l.
func Resolve(e *models.Entity, l Lookup) (*Context, error) {
	var (
		c   Context
		err error
	)
	if c.Personas, err = l.PersonaNames(e.PersonaIDs); err != nil {
		return nil, fmt.Errorf("markdown: resolve personas: %w", err)
	}
	if c.Features, err = l.FeatureNames(e.FeatureIDs); err != nil {
		return nil, fmt.Errorf("markdown: resolve features: %w", err)
	}
	if c.Dimensions, err = l.DimensionGroups(e.DimensionValueIDs); err != nil {
		return nil, fmt.Errorf("markdown: resolve dimensions: %w", err)
	}
	if c.Links, err = l.OutgoingLinks(e.ID); err != nil {
		return nil, fmt.Errorf("markdown: resolve links: %w", err)
	}
	return &c, nil
}

// Render resolves the context of e and returns its Markdown document.
func Render(e *models.Entity, l Lookup) (string, error) {
	c, err := Resolve(e, l)
	if err != nil {
		return "", err
	}
	return Document(e, c), nil
}

// Document renders e with an already resolved context.
func Document(e *models.Entity, c *Context) string {
	return Frontmatter(e, c) + "\n\n" + e.Body
}

// Frontmatter renders the --- delimited header of e.
func Frontmatter(e *models.Entity, c *Context) string {
	lines := []string{
		"---",
		"id: " + e.ID,
		"type: " + string(e.Type),
		"title: " + Escape(e.Title),
	}
	if e.Status != nil && *e.Status != "" {
		lines = append(lines, "status: "+*e.Status)
	}
	lines = append(lines,
		`created_at: "`+e.CreatedAt+`"`,
		`updated_at: "`+e.UpdatedAt+`"`,
	)
	if e.Type == models.TypeCapture && e.PromotedToID != nil && *e.PromotedToID != "" {
		lines = append(lines, "promoted_to: "+*e.PromotedToID)
	}
	if e.Metadata != nil {
		for _, f := range typeRules[e.Type] {
			if line, ok := f.render(e.Metadata); ok {
				lines = append(lines, line)
			}
		}
	}

	if c == nil {
		c = &Context{}
	}
	if c.hasTags() {
		lines = append(lines, "context:")
		if len(c.Personas) > 0 {
			lines = append(lines, "  personas: "+FlowArray(c.Personas))
		}
		if len(c.Features) > 0 {
			lines = append(lines, "  features: "+FlowArray(c.Features))
		}
		if len(c.Dimensions) > 0 {
			lines = append(lines, "  dimensions:")
			for _, d := range c.Dimensions {
				lines = append(lines, "    "+Escape(d.Name)+": "+FlowArray(d.Values))
			}
		}
	}

	if len(c.Links) > 0 {
		lines = append(lines, "links:")
		for _, l := range c.Links {
			lines = append(lines,
				"  - target_id: "+l.TargetID,
				"    type: "+string(l.Type),
				"    title: "+Escape(l.Title),
			)
			if l.Relationship != nil && *l.Relationship != "" {
				lines = append(lines, "    relationship: "+*l.Relationship)
			}
		}
	}

	lines = append(lines, "---")
	return strings.Join(lines, "\n")
}
