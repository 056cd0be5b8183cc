package model

// Well-known template names with extra steps after the generic apply.
const (
	TemplateNewWorkspace   = "new-workspace"
	TemplateVariableUpdate = "variable-update"
)

// Template is a named infrastructure module applied to a workspace.
type Template struct {
	Name string `json:"name" yaml:"name"`
}

// IsNewWorkspace reports whether t establishes the workspace backend.
func (t Template) IsNewWorkspace() bool { return t.Name == TemplateNewWorkspace }

// IsVariableUpdate reports whether t refreshes all workspace variables.
func (t Template) IsVariableUpdate() bool { return t.Name == TemplateVariableUpdate }

// OrderTemplates returns a copy of templates with the new-workspace template
// moved to the front. All other templates keep their relative order.
func OrderTemplates(templates []Template) []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		if t.IsNewWorkspace() {
			out = append(out, t)
		}
	}
	for _, t := range templates {
		if !t.IsNewWorkspace() {
			out = append(out, t)
		}
	}
	return out
}

// TemplateNames returns the names of templates in order.
func TemplateNames(templates []Template) []string {
	names := make([]string, len(templates))
	for i, t := range templates {
		names[i] = t.Name
	}
	return names
}
