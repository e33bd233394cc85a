package diagnosis

import (
	"strings"

	"github.com/Brownie44l1/plantify/internal/catalog"
)

// Kind selects which information block the page renders.
type Kind string

const (
	KindHealthy  Kind = "healthy"
	KindDisease  Kind = "disease"
	KindNotFound Kind = "not_found"
)

const (
	NotAvailableMessage = "Information for this disease is not available in the database."

	defaultHealthyTitle       = "Healthy"
	defaultHealthyDescription = "The plant appears to be in good health. Keep up the good care!"
	healthyFieldFallback      = "N/A"
)

// Section is one named block of reference text.
type Section struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Report is everything the info block needs. Sections is empty for KindNotFound.
type Report struct {
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title,omitempty"`
	Message  string    `json:"message,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

// IsHealthy reports whether class names a healthy leaf.
func IsHealthy(class string) bool {
	return strings.Contains(strings.ToLower(class), "healthy")
}

// BuildReport looks up class in info and fills in placeholders for absent fields.
func BuildReport(class string, info catalog.DiseaseInfo) Report {
	rec, ok := info.Lookup(class)
	if !ok {
		return Report{Kind: KindNotFound, Message: NotAvailableMessage}
	}

	if IsHealthy(class) {
		return Report{
			Kind:    KindHealthy,
			Title:   "Status: " + orDefault(rec.Title, defaultHealthyTitle),
			Message: orDefault(rec.Description, defaultHealthyDescription),
			Sections: []Section{
				{Name: "Symptoms", Body: orDefault(rec.Symptoms, healthyFieldFallback)},
				{Name: "Prevention", Body: orDefault(rec.Prevention, healthyFieldFallback)},
			},
		}
	}

	return Report{
		Kind:  KindDisease,
		Title: orDefault(rec.Title, class),
		Sections: []Section{
			{Name: "Description", Body: orDefault(rec.Description, "No description available.")},
			{Name: "Symptoms", Body: orDefault(rec.Symptoms, "No symptoms information available.")},
			{Name: "Prevention", Body: orDefault(rec.Prevention, "No prevention information available.")},
			{Name: "Remedy", Body: orDefault(rec.Remedy, "No remedy information available.")},
		},
	}
}

func orDefault(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
