package generator

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/library"
	"github.com/bentossell/fragg-sub002/internal/logging"
)

// Assembler merges agent outputs into one coherent source artifact using a
// stack-specific strategy. Assembly never fails: a missing expected result
// degrades to a synthesized fallback from the component library.
type Assembler struct {
	catalog *library.Catalog
	log     *zap.Logger
}

// NewAssembler creates an assembler backed by the component catalog
func NewAssembler(catalog *library.Catalog) *Assembler {
	return &Assembler{
		catalog: catalog,
		log:     logging.Named("assembler"),
	}
}

// Assemble combines agent results for the triaged stack. The returned flag
// reports whether a fallback artifact had to be synthesized in place of the
// expected anchor result.
func (a *Assembler) Assemble(results []AgentResult, triage TriageResult, actx *AgentContext) (string, bool) {
	switch triage.Stack {
	case StackStaticHTML:
		return a.assembleStatic(results, triage)
	case StackNextJS:
		return a.assembleComponent(results)
	case StackStreamlit:
		return a.assembleScript(results, actx, library.StreamlitStarter)
	case StackGradio:
		return a.assembleScript(results, actx, library.GradioStarter)
	default:
		return a.assembleConcat(results, triage)
	}
}

// assembleStatic anchors on the HTML result and injects CSS/JS fragments
func (a *Assembler) assembleStatic(results []AgentResult, triage TriageResult) (string, bool) {
	html := codeByKind(results, KindHTML)
	if html == "" {
		a.log.Warn("no html result, using starter template",
			zap.String("domain", triage.Context.Domain))
		return a.catalog.StarterTemplate(starterKindForDomain(triage.Context.Domain), triage.Components), true
	}

	if css := codeByKind(results, KindCSS); css != "" {
		styleBlock := "<style>\n" + css + "\n</style>"
		if strings.Contains(html, "</head>") {
			html = strings.Replace(html, "</head>", styleBlock+"\n</head>", 1)
		} else {
			html = styleBlock + "\n" + html
		}
	}

	if js := codeByKind(results, KindJS); js != "" {
		scriptBlock := "<script>\n" + js + "\n</script>"
		if strings.Contains(html, "</body>") {
			html = strings.Replace(html, "</body>", scriptBlock+"\n</body>", 1)
		} else {
			html = html + "\n" + scriptBlock
		}
	}

	if !strings.Contains(strings.ToLower(html), "<!doctype") {
		html = library.HTMLShell(html)
	}

	return html, false
}

var functionNameRe = regexp.MustCompile(`function\s+([A-Z]\w*)`)

// assembleComponent anchors on the React component result. A backend result
// is appended as a documentation comment: cross-concern merging of UI and
// backend code into one executable file is deliberately not attempted.
func (a *Assembler) assembleComponent(results []AgentResult) (string, bool) {
	code := codeByKind(results, KindComponent)
	synthesized := false
	if code == "" {
		a.log.Warn("no component result, using starter component")
		code = library.ReactStarter()
		synthesized = true
	}

	if !strings.Contains(code, "from 'react'") && !strings.Contains(code, `from "react"`) {
		code = "import React from 'react'\n\n" + code
	}

	if !strings.Contains(code, "export default") {
		name := "App"
		if m := functionNameRe.FindStringSubmatch(code); m != nil {
			name = m[1]
		}
		code = code + "\n\nexport default " + name + "\n"
	}

	if backend := codeByKind(results, KindBackend); backend != "" {
		code += fmt.Sprintf("\n\n/*\nAPI routes (place under pages/api/):\n\n%s\n*/\n", backend)
	}

	return code, synthesized
}

// assembleScript selects the single matching-language result, or renders the
// full-file fallback template directly; no partial assembly for script stacks
func (a *Assembler) assembleScript(results []AgentResult, actx *AgentContext, starter func(string) string) (string, bool) {
	if code := codeByKind(results, KindScript); code != "" {
		return code, false
	}
	a.log.Warn("no script result, using starter app")
	return starter(actx.UserPrompt), true
}

// assembleConcat is the default strategy: all non-empty blocks joined
func (a *Assembler) assembleConcat(results []AgentResult, triage TriageResult) (string, bool) {
	var blocks []string
	for _, r := range results {
		if r.Code != "" {
			blocks = append(blocks, r.Code)
		}
	}
	if len(blocks) == 0 {
		return a.catalog.StarterTemplate(starterKindForDomain(triage.Context.Domain), triage.Components), true
	}
	return strings.Join(blocks, "\n\n"), false
}

func codeByKind(results []AgentResult, kind OutputKind) string {
	for _, r := range results {
		if r.Kind == kind && r.Code != "" {
			return r.Code
		}
	}
	return ""
}

func starterKindForDomain(domain string) library.StarterKind {
	switch domain {
	case "landing":
		return library.StarterLanding
	case "dashboard":
		return library.StarterDashboard
	default:
		return library.StarterGeneric
	}
}
