package mcpserver

// EntityFormatContract describes the generated entity Markdown files for
// LLM consumers reading a workspace.
const EntityFormatContract = `# Product OS Entity File Format

Entity files are generated from the database. Edits made by hand are kept
until the entity is next saved, when the file is rewritten.

## Location

` + "```" + `
<workspace>/products/<product folder>/entities/<type folder>/<entity id>.md
` + "```" + `

Type folders: captures, problems, hypotheses, experiments, decisions, artifacts.
The product folder is named after the product; ` + "`" + `product.json` + "`" + ` inside it holds
the product id.

## Structure

` + "```" + `markdown
---
id: prob_1a2b3c4d5e6f
type: problem
title: Users churn
status: active
created_at: "2024-05-01T10:00:00.000Z"
updated_at: "2024-05-02T11:30:00.000Z"
context:
  personas: [Coach]
  features: [Highlights]
  dimensions:
    Segment: [Pro, Team]
links:
  - target_id: hyp_9f8e7d6c5b4a
    type: hypothesis
    title: Faster onboarding
    relationship: addresses
---

Body text in Markdown.
` + "```" + `

## Fields

1. ` + "`" + `id` + "`" + `, ` + "`" + `type` + "`" + `, ` + "`" + `title` + "`" + `, ` + "`" + `created_at` + "`" + ` and ` + "`" + `updated_at` + "`" + ` are always present.
2. ` + "`" + `status` + "`" + ` is present when the entity has one (captures and decisions usually do not).
3. Type-specific fields follow: ` + "`" + `confidence` + "`" + ` (hypothesis); ` + "`" + `start_date` + "`" + `, ` + "`" + `end_date` + "`" + `,
   ` + "`" + `outcome` + "`" + `, ` + "`" + `metrics` + "`" + ` (experiment); ` + "`" + `decision_type` + "`" + `, ` + "`" + `decided_at` + "`" + ` (decision);
   ` + "`" + `artifact_type` + "`" + `, ` + "`" + `source` + "`" + ` (artifact).
4. A promoted capture carries ` + "`" + `promoted_to` + "`" + ` with the id of the created entity.
5. ` + "`" + `context` + "`" + ` lists persona, feature and dimension value names. ` + "`" + `links` + "`" + ` lists outgoing
   relationships. Both blocks are omitted when empty.
6. Strings containing YAML-significant characters are double-quoted.

## Creating entities

Do not write entity files directly; they are not read back into the database.
Use the ` + "`" + `create_capture` + "`" + ` tool to record new items.
`
