package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// embeds all .yaml files in the templates folder into Go program at compile time
//
//go:embed templates/*.yaml
var templateFS embed.FS

// PromptProvider is the read side used by the conversation, scoring and resume packages.
type PromptProvider interface {
	BuildPrompt(name, variant string, data interface{}) (string, error)
	BuildSystemPrompt(name string, data interface{}) (string, error)
}

type PromptManager struct {
	prompts map[string]map[string]*template.Template // name -> variant -> base + variant prompt
	systems map[string]*template.Template
}

// loaded prompt template file
type PromptTemplate struct {
	SystemPrompt string            `yaml:"system_prompt"`
	BasePrompt   string            `yaml:"base_prompt"`
	Variants     map[string]string `yaml:"variants"`
}

// creates a new prompt manager and loads templates
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[string]map[string]*template.Template),
		systems: make(map[string]*template.Template),
	}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return pm, nil
}

// BuildPrompt renders the base prompt followed by the named variant.
func (pm *PromptManager) BuildPrompt(name, variant string, data interface{}) (string, error) {
	variants, exists := pm.prompts[name]
	if !exists {
		return "", fmt.Errorf("template not found: %s", name)
	}

	tmpl, exists := variants[variant]
	if !exists {
		return "", fmt.Errorf("variant '%s' not found for template '%s'", variant, name)
	}

	return execute(tmpl, data)
}

// BuildSystemPrompt renders the system instruction of a template; empty when none is defined.
func (pm *PromptManager) BuildSystemPrompt(name string, data interface{}) (string, error) {
	if _, exists := pm.prompts[name]; !exists {
		return "", fmt.Errorf("template not found: %s", name)
	}
	tmpl, exists := pm.systems[name]
	if !exists {
		return "", nil
	}
	return execute(tmpl, data)
}

func (pm *PromptManager) GetTemplates() map[string]map[string]*template.Template {
	return pm.prompts
}

func execute(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// loadPrompts loads all YAML prompt files from the embedded filesystem
func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var promptTemplate PromptTemplate
		if err := yaml.Unmarshal(data, &promptTemplate); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		pm.prompts[name] = make(map[string]*template.Template)

		if promptTemplate.SystemPrompt != "" {
			tmpl, err := template.New(name + ".system").Option("missingkey=zero").Parse(promptTemplate.SystemPrompt)
			if err != nil {
				return fmt.Errorf("failed to compile system prompt %s: %w", name, err)
			}
			pm.systems[name] = tmpl
		}

		for variant, variantPrompt := range promptTemplate.Variants {
			var fullPrompt strings.Builder
			if promptTemplate.BasePrompt != "" {
				fullPrompt.WriteString(promptTemplate.BasePrompt)
				fullPrompt.WriteString("\n")
			}
			fullPrompt.WriteString(variantPrompt)

			tmpl, err := template.New(name + "." + variant).Option("missingkey=zero").Parse(fullPrompt.String())
			if err != nil {
				return fmt.Errorf("failed to compile %s/%s: %w", name, variant, err)
			}
			pm.prompts[name][variant] = tmpl
		}
	}

	return nil
}
