package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/kjstillabower/buoy-station-tools/internal/buoy"
	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer executes the dashboard page template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates. Call during startup; a parse
// error means the binary is broken and the server should not start.
func NewRenderer() (*Renderer, error) {
	return newRendererFromFS(templatesFS, "templates")
}

func newRendererFromFS(fsys fs.FS, dir string) (*Renderer, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.ParseFS(sub, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Tab is one panel tab on the page.
type Tab struct {
	Panel  Panel
	Label  string
	Active bool
}

// PageData is the view model for dashboard.html.
type PageData struct {
	Buoy        string
	Tabs        []Tab
	Status      string
	Current     bool
	Stale       bool
	Chopiness   float64
	Tier        string
	BarColor    string
	GeneratedAt string
	Observed    int
	Flash       string
}

// NewPageData builds the view model. active selects the open tab and falls
// back to the first panel when empty or unknown.
func NewPageData(snap models.Snapshot, active Panel, flash string) PageData {
	if _, err := ParsePanel(string(active)); err != nil {
		active = Panels[0]
	}
	tabs := make([]Tab, len(Panels))
	for i, p := range Panels {
		tabs[i] = Tab{Panel: p, Label: p.Label(), Active: p == active}
	}
	tier := buoy.Tier(snap.Tier)
	return PageData{
		Buoy:        snap.Buoy,
		Tabs:        tabs,
		Status:      snap.Status,
		Current:     snap.Status == buoy.StatusCurrent,
		Stale:       snap.Stale,
		Chopiness:   snap.LatestChopiness(),
		Tier:        string(tier),
		BarColor:    tier.BarColor(),
		GeneratedAt: snap.GeneratedAt.Format("2006-01-02 15:04 MST"),
		Observed:    len(snap.Observations),
		Flash:       flash,
	}
}

// RenderPage writes the full dashboard page.
func (r *Renderer) RenderPage(w io.Writer, data PageData) error {
	return r.tmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderUnavailable writes the page shown when no snapshot could be built.
func (r *Renderer) RenderUnavailable(w io.Writer, buoyID, reason string) error {
	return r.tmpl.ExecuteTemplate(w, "unavailable.html", struct {
		Buoy   string
		Reason string
	}{buoyID, reason})
}
