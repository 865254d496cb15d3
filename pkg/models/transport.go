package models

// AssessRequest asks for the quality of a remote image
type AssessRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// DescaleOptionsRequest carries optional overrides of the configured search
// options. Omitted fields keep the server defaults.
type DescaleOptionsRequest struct {
	CoarseStep      *int     `form:"coarse_step" json:"coarse_step,omitempty"`
	FineStep        *int     `form:"fine_step" json:"fine_step,omitempty"`
	FineRange       *int     `form:"fine_range" json:"fine_range,omitempty"`
	MinWidthRatio   *float64 `form:"min_width_ratio" json:"min_width_ratio,omitempty"`
	BrisqueWeight   *float64 `form:"brisque_weight" json:"brisque_weight,omitempty"`
	SharpnessWeight *float64 `form:"sharpness_weight" json:"sharpness_weight,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}
