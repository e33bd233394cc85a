// Package web holds the HTML page and the view model it renders.
package web

import (
	"embed"
	"html/template"
	"strings"

	"github.com/Brownie44l1/plantify/internal/analysis"
	"github.com/Brownie44l1/plantify/internal/diagnosis"
	"github.com/Brownie44l1/plantify/internal/imaging"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageTemplate = "index.html"

	IdleMessage     = "Please upload an image or use the camera to get an analysis."
	NotReadyMessage = "App is not fully loaded. Check for file loading errors above."
)

// Page is the data rendered by the index template.
type Page struct {
	Mode       imaging.Mode
	LoadErrors []string
	Ready      bool
	InputError string
	Preview    template.URL
	Outcome    *analysis.Outcome
	Error      string
}

// Templates parses the embedded templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"accept":       accept,
		"bannerClass":  bannerClass,
		"isHealthy":    func(k diagnosis.Kind) bool { return k == diagnosis.KindHealthy },
		"isDisease":    func(k diagnosis.Kind) bool { return k == diagnosis.KindDisease },
		"idleMessage":  func() string { return IdleMessage },
		"notReady":     func() string { return NotReadyMessage },
		"isCameraMode": func(m imaging.Mode) bool { return m == imaging.ModeCamera },
	}).ParseFS(templateFS, "templates/*.html")
}

func accept() string {
	exts := make([]string, len(imaging.AllowedExtensions))
	for i, e := range imaging.AllowedExtensions {
		exts[i] = "." + e
	}
	return strings.Join(exts, ",")
}

func bannerClass(t diagnosis.Tier) string {
	switch t {
	case diagnosis.TierHigh:
		return "success"
	case diagnosis.TierModerate:
		return "warning"
	default:
		return "error"
	}
}
