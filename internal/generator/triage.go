package generator

import "strings"

// Triage classifies a free-text prompt into a target stack, template, and
// component set. Pure function of the prompt: identical input always yields
// an identical result, which keeps cache fingerprints meaningful. Malformed
// or empty input degrades to the static HTML default rather than failing.
func Triage(prompt string) TriageResult {
	p := strings.ToLower(strings.TrimSpace(prompt))

	stack := classifyStack(p)

	result := TriageResult{
		Stack:      stack,
		Template:   TemplateFor(stack),
		Components: detectComponents(p),
		Requirements: Requirements{
			Complexity: estimateComplexity(p),
		},
		Context: PromptContext{
			Domain:      classifyDomain(p),
			Preferences: detectPreferences(p),
		},
	}

	return result
}

func classifyStack(p string) Stack {
	if p == "" {
		return StackStaticHTML
	}

	switch {
	case containsAny(p, "streamlit", "data app", "data dashboard", "data analysis", "pandas", "chart from csv"):
		return StackStreamlit
	case containsAny(p, "gradio", "ml demo", "model demo", "machine learning interface"):
		return StackGradio
	case containsAny(p, "next.js", "nextjs", "react", "component", "spa", "single page app",
		"counter", "todo", "state", "interactive app"):
		return StackNextJS
	case containsAny(p, "python script", "python app", "notebook"):
		return StackStreamlit
	case containsAny(p, "landing page", "website", "web page", "html", "portfolio", "blog page"):
		return StackStaticHTML
	default:
		return StackStaticHTML
	}
}

func detectComponents(p string) []string {
	var out []string
	checks := []struct {
		id       string
		keywords []string
	}{
		{"navbar", []string{"navbar", "nav bar", "navigation", "menu bar", "header nav"}},
		{"hero", []string{"hero", "headline", "landing page", "banner"}},
		{"card", []string{"card", "tile", "grid of"}},
		{"form", []string{"form", "signup", "sign up", "contact", "input field", "subscribe"}},
		{"footer", []string{"footer"}},
		{"table", []string{"table", "list of", "rows"}},
	}
	for _, c := range checks {
		if containsAny(p, c.keywords...) {
			out = append(out, c.id)
		}
	}
	return out
}

func estimateComplexity(p string) Complexity {
	if containsAny(p, "auth", "login", "database", "payment", "realtime", "real-time", "multi-page", "multiplayer") {
		return ComplexityComplex
	}
	words := len(strings.Fields(p))
	if words > 25 || containsAny(p, "api", "fetch", "upload", "search", "filter", "sort") {
		return ComplexityMedium
	}
	return ComplexitySimple
}

func classifyDomain(p string) string {
	switch {
	case containsAny(p, "landing", "marketing", "portfolio", "product page"):
		return "landing"
	case containsAny(p, "dashboard", "admin", "analytics", "metrics", "stats"):
		return "dashboard"
	case containsAny(p, "todo", "task", "checklist"):
		return "productivity"
	case containsAny(p, "game", "quiz", "puzzle"):
		return "game"
	case containsAny(p, "shop", "store", "cart", "ecommerce", "e-commerce"):
		return "commerce"
	default:
		return "generic"
	}
}

func detectPreferences(p string) []string {
	var prefs []string
	if containsAny(p, "dark mode", "dark theme") {
		prefs = append(prefs, "dark")
	}
	if containsAny(p, "minimal", "clean", "simple design") {
		prefs = append(prefs, "minimal")
	}
	if containsAny(p, "colorful", "vibrant", "playful") {
		prefs = append(prefs, "colorful")
	}
	if containsAny(p, "tailwind") {
		prefs = append(prefs, "tailwind")
	}
	return prefs
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
