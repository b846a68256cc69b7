package domain

// AnalysisFilter scopes classification and optimization queries.
type AnalysisFilter struct {
	AnalysisDays int     `json:"analysis_days"`
	ProductIDs   []int64 `json:"product_ids"`
	// Cell restricts matrix results to one ABC-XYZ cell, e.g. "AX".
	Cell string `json:"cell"`
}

// RecommendationFilter scopes the recommendation list.
type RecommendationFilter struct {
	Urgency    string  `json:"urgency"`
	ProductIDs []int64 `json:"product_ids"`
	Limit      int     `json:"limit"`
}
