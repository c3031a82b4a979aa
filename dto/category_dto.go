package dto

type CreateCategoryDTO struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"` // auto-generated from Name if empty
}

// UpdateCategoryDTO fields are optional; nil means unchanged.
type UpdateCategoryDTO struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}
