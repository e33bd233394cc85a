// Package catalog holds the class label list and the per-class disease
// reference text shipped alongside the classifier.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Labels maps classifier output index i to a class name.
type Labels []string

// Record is the reference text for one class. Every field is optional; a nil
// pointer means the key was absent from the source file.
type Record struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Symptoms    *string `json:"symptoms,omitempty"`
	Prevention  *string `json:"prevention,omitempty"`
	Remedy      *string `json:"remedy,omitempty"`
}

// DiseaseInfo maps a class name to its reference record.
type DiseaseInfo map[string]Record

// Lookup returns the record for class and whether it exists.
func (d DiseaseInfo) Lookup(class string) (Record, bool) {
	r, ok := d[class]
	return r, ok
}

// LoadLabels reads a JSON array of class names.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class names: %w", err)
	}

	var labels Labels
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse class names: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("class names file %s is empty", path)
	}
	return labels, nil
}

// LoadDiseaseInfo reads a JSON object keyed by class name.
func LoadDiseaseInfo(path string) (DiseaseInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read disease info: %w", err)
	}

	var info DiseaseInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse disease info: %w", err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("disease info file %s is empty", path)
	}
	return info, nil
}

// Missing returns the labels that have no disease info entry.
func (d DiseaseInfo) Missing(labels Labels) []string {
	var missing []string
	for _, l := range labels {
		if _, ok := d[l]; !ok {
			missing = append(missing, l)
		}
	}
	return missing
}
