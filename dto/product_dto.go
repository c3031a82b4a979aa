package dto

// ProductFilterDTO is the body of POST /products/filter.
// Checked holds category ids, Radio an optional [min, max] price range.
type ProductFilterDTO struct {
	Checked []string  `json:"checked"`
	Radio   []float64 `json:"radio"`
}
