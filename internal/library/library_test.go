package library

import (
	"strings"
	"testing"
)

func TestGetComponentsSkipsUnknown(t *testing.T) {
	c := NewCatalog()

	got := c.GetComponents([]string{"navbar", "does-not-exist", "footer"})
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2 (unknown ids skipped)", len(got))
	}
	if got[0].ID != "navbar" || got[1].ID != "footer" {
		t.Errorf("order should follow the request: %v", []string{got[0].ID, got[1].ID})
	}
}

func TestCatalogHas(t *testing.T) {
	c := NewCatalog()
	if !c.Has("hero") {
		t.Error("built-in hero entry missing")
	}
	if c.Has("spaceship") {
		t.Error("unknown id reported as present")
	}
}

func TestStarterTemplateIsCompleteDocument(t *testing.T) {
	c := NewCatalog()

	for _, kind := range []StarterKind{StarterLanding, StarterDashboard, StarterGeneric} {
		page := c.StarterTemplate(kind, nil)
		lower := strings.ToLower(page)
		if !strings.Contains(lower, "<!doctype html>") {
			t.Errorf("%s starter is not a complete document", kind)
		}
		if !strings.Contains(page, "tailwindcss") {
			t.Errorf("%s starter should include the utility framework", kind)
		}
	}
}

func TestStarterTemplateEmbedsComponents(t *testing.T) {
	c := NewCatalog()

	page := c.StarterTemplate(StarterGeneric, []string{"footer", "unknown"})
	if !strings.Contains(page, "<footer") {
		t.Error("requested component should be embedded in the starter")
	}
}

func TestHTMLShellWrapsFragment(t *testing.T) {
	page := HTMLShell("<h1>Fragment</h1>")
	if !strings.Contains(page, "<h1>Fragment</h1>") {
		t.Error("fragment lost during wrapping")
	}
	if !strings.Contains(strings.ToLower(page), "<!doctype html>") {
		t.Error("shell should produce a complete document")
	}
}

func TestReactStarterHasDefaultExport(t *testing.T) {
	code := ReactStarter()
	if !strings.Contains(code, "export default") {
		t.Error("starter component needs a default export")
	}
	if !strings.Contains(code, "useState") {
		t.Error("starter component should be interactive")
	}
}

func TestPythonStartersEmbedPrompt(t *testing.T) {
	prompt := "sales dashboard"
	if !strings.Contains(StreamlitStarter(prompt), prompt) {
		t.Error("streamlit starter should reference the prompt")
	}
	if !strings.Contains(GradioStarter(prompt), prompt) {
		t.Error("gradio starter should reference the prompt")
	}
}
