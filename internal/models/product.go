package models

// Product groups entities and owns one folder in the workspace.
type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	Icon           *string `json:"icon"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
	LastActivityAt string  `json:"lastActivityAt"`
}

// Settings is the singleton application settings row.
type Settings struct {
	WorkspacePath *string `json:"workspacePath"`
	LastProductID *string `json:"lastProductId"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

// TaxonomyItem is a persona, feature, dimension or dimension value.
type TaxonomyItem struct {
	ID        string `json:"id"`
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
}
