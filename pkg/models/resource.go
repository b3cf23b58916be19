package models

// Resource is a curated learning material (article, docs page, tutorial).
type Resource struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Topics     []string   `json:"topics"`
	Kind       string     `json:"kind"` // article, documentation, tutorial, video
	SkillLevel SkillLevel `json:"skill_level,omitempty"`
	Summary    string     `json:"summary,omitempty"`
}

// QualityReport is the heuristic verdict on a resource.
type QualityReport struct {
	ResourceID string   `json:"resource_id"`
	Score      float64  `json:"score"` // 0..1
	Reachable  bool     `json:"reachable"`
	Issues     []string `json:"issues,omitempty"`
}

// Recommendation pairs a resource with the reason it was suggested.
type Recommendation struct {
	Resource Resource `json:"resource"`
	Reason   string   `json:"reason"`
	Score    float64  `json:"score"`
}
