// Package library - Reusable component catalog and starter templates
// Provides keyed snippet lookup and fallback starter generation for the assembler.
package library

import (
	"fmt"
	"strings"
)

// Entry represents a reusable code snippet in the catalog
type Entry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Code         string   `json:"code"`
	Dependencies []string `json:"dependencies,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// StarterKind selects which starter template to generate
type StarterKind string

const (
	StarterLanding   StarterKind = "landing"
	StarterDashboard StarterKind = "dashboard"
	StarterGeneric   StarterKind = "generic"
)

// Catalog is a keyed lookup service over the component entries
type Catalog struct {
	entries map[string]Entry
}

// NewCatalog creates a catalog with the built-in component set
func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]Entry)}
	for _, e := range builtinEntries() {
		c.entries[e.ID] = e
	}
	return c
}

// GetComponents returns the entries for the requested ids. Unknown ids are
// skipped, never an error.
func (c *Catalog) GetComponents(ids []string) []Entry {
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether the catalog contains an entry for the id
func (c *Catalog) Has(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// StarterTemplate generates a complete fallback page for the given kind,
// embedding any requested component snippets into the body.
func (c *Catalog) StarterTemplate(kind StarterKind, componentIDs []string) string {
	var title, body string

	switch kind {
	case StarterLanding:
		title = "Welcome"
		body = `  <header class="bg-white shadow">
    <div class="max-w-5xl mx-auto px-6 py-4 flex items-center justify-between">
      <span class="text-xl font-bold text-indigo-600">MyApp</span>
      <nav class="space-x-6 text-sm text-gray-600">
        <a href="#features" class="hover:text-gray-900">Features</a>
        <a href="#pricing" class="hover:text-gray-900">Pricing</a>
      </nav>
    </div>
  </header>
  <main class="max-w-5xl mx-auto px-6 py-20 text-center">
    <h1 class="text-5xl font-extrabold text-gray-900">Build something great</h1>
    <p class="mt-4 text-lg text-gray-600">A clean starting point for your next idea.</p>
    <button class="mt-8 px-6 py-3 bg-indigo-600 text-white rounded-lg hover:bg-indigo-700">Get Started</button>
  </main>`
	case StarterDashboard:
		title = "Dashboard"
		body = `  <div class="flex min-h-screen">
    <aside class="w-56 bg-gray-900 text-gray-300 p-4">
      <h2 class="text-white font-semibold mb-6">Dashboard</h2>
      <nav class="space-y-2 text-sm">
        <a href="#" class="block px-3 py-2 rounded bg-gray-800 text-white">Overview</a>
        <a href="#" class="block px-3 py-2 rounded hover:bg-gray-800">Reports</a>
        <a href="#" class="block px-3 py-2 rounded hover:bg-gray-800">Settings</a>
      </nav>
    </aside>
    <main class="flex-1 p-8 bg-gray-100">
      <div class="grid grid-cols-3 gap-6">
        <div class="bg-white rounded-lg shadow p-6"><p class="text-sm text-gray-500">Users</p><p class="text-3xl font-bold">1,284</p></div>
        <div class="bg-white rounded-lg shadow p-6"><p class="text-sm text-gray-500">Revenue</p><p class="text-3xl font-bold">$12,430</p></div>
        <div class="bg-white rounded-lg shadow p-6"><p class="text-sm text-gray-500">Active</p><p class="text-3xl font-bold">87%</p></div>
      </div>
    </main>
  </div>`
	default:
		title = "My App"
		body = `  <main class="max-w-3xl mx-auto px-6 py-16">
    <h1 class="text-3xl font-bold text-gray-900">My App</h1>
    <p class="mt-2 text-gray-600">Generated starter page. Describe what you want to build to customize it.</p>
  </main>`
	}

	var snippets strings.Builder
	for _, e := range c.GetComponents(componentIDs) {
		snippets.WriteString("\n")
		snippets.WriteString(e.Code)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-50">
%s%s
</body>
</html>`, title, body, snippets.String())
}

// HTMLShell wraps a bare fragment in a minimal HTML5 document including the
// CSS utility framework reference.
func HTMLShell(fragment string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Generated App</title>
  <script src="https://cdn.tailwindcss.com"></script>
</head>
<body>
%s
</body>
</html>`, fragment)
}

// ReactStarter is the minimal interactive component used when no
// component-type agent output is available.
func ReactStarter() string {
	return `import React, { useState } from 'react'

function GeneratedApp() {
  const [count, setCount] = useState(0)

  return (
    <div className="min-h-screen flex items-center justify-center bg-gray-50">
      <div className="bg-white rounded-xl shadow p-8 text-center">
        <h1 className="text-2xl font-bold text-gray-900">Generated App</h1>
        <p className="mt-2 text-gray-600">Count: {count}</p>
        <button
          className="mt-4 px-4 py-2 bg-indigo-600 text-white rounded hover:bg-indigo-700"
          onClick={() => setCount(count + 1)}
        >
          Increment
        </button>
      </div>
    </div>
  )
}

export default GeneratedApp
`
}

// StreamlitStarter returns a full-file Streamlit app used when the script
// agent produced nothing usable.
func StreamlitStarter(prompt string) string {
	return fmt.Sprintf(`import streamlit as st

st.set_page_config(page_title="Generated App", page_icon="✨", layout="wide")

st.title("Generated App")
st.caption(%q)

if "count" not in st.session_state:
    st.session_state.count = 0

col1, col2 = st.columns(2)
with col1:
    if st.button("Increment"):
        st.session_state.count += 1
with col2:
    if st.button("Reset"):
        st.session_state.count = 0

st.metric("Count", st.session_state.count)
`, prompt)
}

// GradioStarter returns a full-file Gradio app fallback
func GradioStarter(prompt string) string {
	return fmt.Sprintf(`import gradio as gr

def greet(name):
    return f"Hello, {name}!"

with gr.Blocks(title="Generated App") as demo:
    gr.Markdown("# Generated App")
    gr.Markdown(%q)
    name = gr.Textbox(label="Name")
    output = gr.Textbox(label="Greeting")
    btn = gr.Button("Greet")
    btn.click(fn=greet, inputs=name, outputs=output)

demo.launch()
`, prompt)
}

// builtinEntries is the in-source component catalog. Kept deliberately small;
// the catalog boundary is a keyed lookup, not a design system.
func builtinEntries() []Entry {
	return []Entry{
		{
			ID:          "navbar",
			Name:        "Navigation Bar",
			Description: "Responsive top navigation with brand and links",
			Code: `  <nav class="bg-white shadow px-6 py-4 flex items-center justify-between">
    <span class="font-bold text-indigo-600">Brand</span>
    <div class="space-x-4 text-sm text-gray-600">
      <a href="#" class="hover:text-gray-900">Home</a>
      <a href="#" class="hover:text-gray-900">About</a>
    </div>
  </nav>`,
			Tags: []string{"navigation", "header"},
		},
		{
			ID:          "hero",
			Name:        "Hero Section",
			Description: "Centered hero with headline and call to action",
			Code: `  <section class="py-20 text-center">
    <h1 class="text-5xl font-extrabold text-gray-900">Headline here</h1>
    <p class="mt-4 text-lg text-gray-600">Supporting copy goes here.</p>
    <button class="mt-8 px-6 py-3 bg-indigo-600 text-white rounded-lg">Call to Action</button>
  </section>`,
			Tags: []string{"hero", "landing"},
		},
		{
			ID:          "card",
			Name:        "Content Card",
			Description: "Shadowed card container",
			Code: `  <div class="bg-white rounded-lg shadow p-6">
    <h3 class="font-semibold text-gray-900">Card title</h3>
    <p class="mt-1 text-sm text-gray-600">Card body text.</p>
  </div>`,
			Tags: []string{"card", "layout"},
		},
		{
			ID:          "form",
			Name:        "Input Form",
			Description: "Simple labeled form with submit button",
			Code: `  <form class="space-y-4 max-w-md">
    <div>
      <label class="block text-sm font-medium text-gray-700">Name</label>
      <input type="text" class="mt-1 w-full border rounded px-3 py-2" />
    </div>
    <button type="submit" class="px-4 py-2 bg-indigo-600 text-white rounded">Submit</button>
  </form>`,
			Tags: []string{"form", "input"},
		},
		{
			ID:          "footer",
			Name:        "Footer",
			Description: "Simple centered footer",
			Code: `  <footer class="py-8 text-center text-sm text-gray-500">
    <p>&copy; 2025. All rights reserved.</p>
  </footer>`,
			Tags: []string{"footer"},
		},
		{
			ID:          "table",
			Name:        "Data Table",
			Description: "Striped table for tabular data",
			Code: `  <table class="min-w-full bg-white rounded shadow text-sm">
    <thead class="bg-gray-100 text-left">
      <tr><th class="px-4 py-2">Name</th><th class="px-4 py-2">Value</th></tr>
    </thead>
    <tbody>
      <tr class="border-t"><td class="px-4 py-2">Example</td><td class="px-4 py-2">42</td></tr>
    </tbody>
  </table>`,
			Tags: []string{"table", "data"},
		},
	}
}
