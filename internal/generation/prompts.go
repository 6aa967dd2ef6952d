package generation

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"story-workers/internal/models"
)

//go:embed prompts/default.yaml
var defaultPrompts []byte

// PromptSet holds the parsed prompt templates for each generation kind.
type PromptSet struct {
	modules   *template.Template
	stories   *template.Template
	testCases *template.Template
}

type promptFile struct {
	Modules   string `yaml:"modules"`
	Stories   string `yaml:"stories"`
	TestCases string `yaml:"test_cases"`
}

// LoadPrompts reads templates from a YAML file. An empty path selects the
// built-in templates; keys missing from the file keep their built-in text.
func LoadPrompts(path string) (*PromptSet, error) {
	var base promptFile
	if err := yaml.Unmarshal(defaultPrompts, &base); err != nil {
		return nil, fmt.Errorf("parse built-in prompts: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts %s: %w", path, err)
		}
		var override promptFile
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("parse prompts %s: %w", path, err)
		}
		if strings.TrimSpace(override.Modules) != "" {
			base.Modules = override.Modules
		}
		if strings.TrimSpace(override.Stories) != "" {
			base.Stories = override.Stories
		}
		if strings.TrimSpace(override.TestCases) != "" {
			base.TestCases = override.TestCases
		}
	}

	set := &PromptSet{}
	var err error
	if set.modules, err = template.New("modules").Parse(base.Modules); err != nil {
		return nil, fmt.Errorf("parse modules prompt: %w", err)
	}
	if set.stories, err = template.New("stories").Parse(base.Stories); err != nil {
		return nil, fmt.Errorf("parse stories prompt: %w", err)
	}
	if set.testCases, err = template.New("test_cases").Parse(base.TestCases); err != nil {
		return nil, fmt.Errorf("parse test_cases prompt: %w", err)
	}
	return set, nil
}

// MustDefaultPrompts returns the built-in templates and panics if they do
// not parse.
func MustDefaultPrompts() *PromptSet {
	set, err := LoadPrompts("")
	if err != nil {
		panic(err)
	}
	return set
}

type modulesPrompt struct {
	RequirementText string
}

type storiesPrompt struct {
	Module            string
	BatchSize         int
	RequirementText   string
	CustomInstruction string
	Prior             []models.Story
}

type testCasesPrompt struct {
	Module            string
	Stories           []models.Story
	CustomInstruction string
	Prior             []models.TestCase
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
