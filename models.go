package main

// Complaint is one customer complaint as collected from the portal.
// Fields beyond ID/Title/Text are carried through to the output artifacts
// but never interpreted by the classification engine.
type Complaint struct {
	ID         string `json:"complaint_id"`
	Title      string `json:"complaint_title"`
	Text       string `json:"complaint_text"`
	OpenedAt   string `json:"opened_at,omitempty"`
	Status     string `json:"status,omitempty"`
	PublicLink string `json:"public_link,omitempty"`
}

// Category is one entry of a taxonomy. Identity is the name.
type Category struct {
	Name        string `json:"category_name"`
	Description string `json:"category_description"`
}

// Sentinel categories used when a real taxonomy category cannot be assigned.
const (
	CategoryOther = "OTHER" // model answered something outside the taxonomy
	CategoryError = "ERROR" // the call or parse failed for this complaint
)

// Assignment maps one complaint to one category label.
type Assignment struct {
	ComplaintID string `json:"complaint_id"`
	Category    string `json:"assigned_category"`
}

type DistributionEntry struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Summary struct {
	TotalComplaints      int                 `json:"total_complaints"`
	CategoryDistribution []DistributionEntry `json:"category_distribution"`
}

// ClassificationOutput is the persisted phase 4 artifact.
type ClassificationOutput struct {
	TaxonomyUsed          []Category   `json:"taxonomy_used"`
	ClassificationResults []Assignment `json:"classification_results"`
	Summary               Summary      `json:"summary"`
}

// ProposedTaxonomy is the persisted phase 2 artifact, awaiting human curation.
type ProposedTaxonomy struct {
	SampleSize         int        `json:"sample_size"`
	TotalComplaints    int        `json:"total_complaints"`
	ProposedCategories []Category `json:"proposed_categories"`
	Status             string     `json:"status"`
}

const statusAwaitingCuration = "AWAITING_HUMAN_CURATION"
