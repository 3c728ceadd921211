package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrTaxonomyFormat reports a taxonomy file whose JSON shape is neither a
// bare category array nor an object wrapping one under "proposed_categories".
var ErrTaxonomyFormat = errors.New("invalid taxonomy format: expected a category array or an object with \"proposed_categories\"")

// LoadTaxonomy reads a curated or proposed taxonomy file. Category names
// must be non-empty and unique; classification validity checks depend on it.
func LoadTaxonomy(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	taxonomy, err := parseTaxonomy(data)
	if err != nil {
		return nil, err
	}
	if err := validateTaxonomy(taxonomy); err != nil {
		return nil, err
	}
	return taxonomy, nil
}

func parseTaxonomy(data []byte) ([]Category, error) {
	var taxonomy []Category
	if err := json.Unmarshal(data, &taxonomy); err == nil {
		return taxonomy, nil
	}

	var wrapped struct {
		ProposedCategories []Category `json:"proposed_categories"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.ProposedCategories != nil {
		return wrapped.ProposedCategories, nil
	}
	return nil, ErrTaxonomyFormat
}

func validateTaxonomy(taxonomy []Category) error {
	seen := make(map[string]bool, len(taxonomy))
	for _, cat := range taxonomy {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return fmt.Errorf("taxonomy contains a category with an empty name")
		}
		if seen[name] {
			return fmt.Errorf("duplicate category name %q in taxonomy", name)
		}
		seen[name] = true
	}
	return nil
}

func categoryNameSet(taxonomy []Category) map[string]bool {
	names := make(map[string]bool, len(taxonomy))
	for _, cat := range taxonomy {
		names[cat.Name] = true
	}
	return names
}

// formatTaxonomyBlock renders the taxonomy as prompt text, one category per
// line with its description.
func formatTaxonomyBlock(taxonomy []Category) string {
	var b strings.Builder
	for _, cat := range taxonomy {
		fmt.Fprintf(&b, "- %s: %s\n", cat.Name, cat.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func SaveProposedTaxonomy(path string, proposed ProposedTaxonomy) error {
	return writeJSONFile(path, proposed)
}

func LoadComplaints(path string) ([]Complaint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read complaints: %w", err)
	}
	var complaints []Complaint
	if err := json.Unmarshal(data, &complaints); err != nil {
		return nil, fmt.Errorf("parse complaints: %w", err)
	}
	return complaints, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
