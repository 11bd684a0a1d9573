package generator

import (
	"strings"
	"testing"

	"github.com/bentossell/fragg-sub002/internal/library"
)

func newTestAssembler() *Assembler {
	return NewAssembler(library.NewCatalog())
}

const testHTML = "<!DOCTYPE html>\n<html>\n<head><title>T</title></head>\n<body><h1>Hi</h1></body>\n</html>"

func TestAssembleStaticInjectsFragments(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("a landing page")
	results := []AgentResult{
		{AgentName: "html", Kind: KindHTML, Code: testHTML},
		{AgentName: "css", Kind: KindCSS, Code: ".x { color: red; }"},
		{AgentName: "js", Kind: KindJS, Code: "console.log('hi')"},
	}

	code, synthesized := asm.Assemble(results, triage, NewAgentContext(triage, "a landing page", nil))

	if synthesized {
		t.Error("assembly with an html anchor must not be synthesized")
	}
	styleAt := strings.Index(code, "<style>")
	headAt := strings.Index(code, "</head>")
	if styleAt < 0 || headAt < 0 || styleAt > headAt {
		t.Error("css should be injected before </head>")
	}
	scriptAt := strings.Index(code, "<script>")
	bodyAt := strings.Index(code, "</body>")
	if scriptAt < 0 || bodyAt < 0 || scriptAt > bodyAt {
		t.Error("js should be injected before </body>")
	}
}

func TestAssembleStaticEmptyFragmentsLeaveAnchorUntouched(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("a landing page")
	results := []AgentResult{
		{AgentName: "html", Kind: KindHTML, Code: testHTML},
		{AgentName: "css", Kind: KindCSS, Code: ""},
		{AgentName: "js", Kind: KindJS, Code: ""},
	}

	code, _ := asm.Assemble(results, triage, NewAgentContext(triage, "a landing page", nil))

	if code != testHTML {
		t.Errorf("empty fragments must not modify the anchor:\n%s", code)
	}
}

func TestAssembleStaticMissingAnchorSynthesizes(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("a landing page for my startup")
	results := []AgentResult{
		{AgentName: "html", Kind: KindHTML, Errors: []string{"provider down"}},
	}

	code, synthesized := asm.Assemble(results, triage, NewAgentContext(triage, "a landing page for my startup", nil))

	if !synthesized {
		t.Error("missing anchor must report synthesis")
	}
	if !strings.Contains(strings.ToLower(code), "<!doctype") {
		t.Error("synthesized page should be a complete document")
	}
}

func TestAssembleStaticWrapsBareFragment(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("a landing page")
	results := []AgentResult{
		{AgentName: "html", Kind: KindHTML, Code: "<h1>Just a fragment</h1>"},
	}

	code, _ := asm.Assemble(results, triage, NewAgentContext(triage, "a landing page", nil))

	if !strings.Contains(strings.ToLower(code), "<!doctype") {
		t.Error("bare fragments should be wrapped into a full document")
	}
	if !strings.Contains(code, "Just a fragment") {
		t.Error("wrapping must preserve the fragment")
	}
}

func TestAssembleComponentEnsuresImportAndExport(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("a counter app")
	results := []AgentResult{
		{AgentName: "component", Kind: KindComponent,
			Code: "function Counter() {\n  return <div>0</div>\n}"},
	}

	code, synthesized := asm.Assemble(results, triage, NewAgentContext(triage, "a counter app", nil))

	if synthesized {
		t.Error("component present, nothing to synthesize")
	}
	if !strings.Contains(code, "from 'react'") {
		t.Error("react import should be ensured")
	}
	if !strings.Contains(code, "export default Counter") {
		t.Errorf("default export should use the detected component name:\n%s", code)
	}
}

func TestAssembleComponentMissingAnchorSynthesizes(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("a counter app")

	code, synthesized := asm.Assemble(nil, triage, NewAgentContext(triage, "a counter app", nil))

	if !synthesized {
		t.Error("missing component must report synthesis")
	}
	if !strings.Contains(code, "export default") {
		t.Error("starter component should have a default export")
	}
}

func TestAssembleComponentAppendsBackendAsComment(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("a counter app")
	results := []AgentResult{
		{Kind: KindComponent, Code: "import React from 'react'\nexport default function App() { return null }"},
		{Kind: KindBackend, Code: "export default function handler(req, res) { res.json({}) }"},
	}

	code, _ := asm.Assemble(results, triage, NewAgentContext(triage, "a counter app", nil))

	if !strings.Contains(code, "/*") || !strings.Contains(code, "handler(req, res)") {
		t.Error("backend output should be carried as a comment block")
	}
}

func TestAssembleScriptFallsBackToStarter(t *testing.T) {
	asm := newTestAssembler()
	triage := Triage("streamlit app for sales data")

	code, synthesized := asm.Assemble(nil, triage, NewAgentContext(triage, "streamlit app for sales data", nil))

	if !synthesized {
		t.Error("missing script must report synthesis")
	}
	if !strings.Contains(code, "import streamlit") {
		t.Errorf("starter should be a runnable streamlit app:\n%s", code)
	}
}
