package intent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/intent.yaml
var defaultPrompt []byte

// PromptSpec is the YAML document driving extraction: the system prompt
// template, the context line for accumulated trip info, sampling style and
// the reference tables rendered into the prompt.
type PromptSpec struct {
	System  string `yaml:"system"`
	Context string `yaml:"context"`
	Style   struct {
		Temperature float32       `yaml:"temperature"`
		MaxTokens   int           `yaml:"max_tokens"`
		History     int           `yaml:"history"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"style"`
	Cities []struct {
		Name     string `yaml:"name"`
		Airports []struct {
			Code string `yaml:"code"`
			Name string `yaml:"name"`
		} `yaml:"airports"`
	} `yaml:"cities"`
	Airlines []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"airlines"`

	system  *template.Template
	context *template.Template
}

// LoadPromptSpec reads the spec at path, or the built-in one when path is
// empty.
func LoadPromptSpec(path string) (*PromptSpec, error) {
	b := defaultPrompt
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read prompt spec: %w", err)
		}
	}
	return ParsePromptSpec(b)
}

func ParsePromptSpec(b []byte) (*PromptSpec, error) {
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse prompt spec: %w", err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return nil, fmt.Errorf("parse prompt spec: system prompt is empty")
	}

	var err error
	if spec.system, err = template.New("system").Parse(spec.System); err != nil {
		return nil, fmt.Errorf("parse system template: %w", err)
	}
	if spec.context, err = template.New("context").Parse(spec.Context); err != nil {
		return nil, fmt.Errorf("parse context template: %w", err)
	}

	if spec.Style.Temperature <= 0 {
		spec.Style.Temperature = 0.7
	}
	if spec.Style.MaxTokens <= 0 {
		spec.Style.MaxTokens = 2000
	}
	if spec.Style.History <= 0 {
		spec.Style.History = 6
	}
	if spec.Style.Timeout <= 0 {
		spec.Style.Timeout = 60 * time.Second
	}
	return &spec, nil
}

var weekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// SystemPrompt renders the system template for the given day.
func (s *PromptSpec) SystemPrompt(now time.Time) (string, error) {
	data := map[string]string{
		"Today":    now.Format("2006-01-02"),
		"Weekday":  weekdays[now.Weekday()],
		"Tomorrow": now.AddDate(0, 0, 1).Format("2006-01-02"),
		"DayAfter": now.AddDate(0, 0, 2).Format("2006-01-02"),
		"Cities":   s.cityTable(),
		"Airlines": s.airlineTable(),
	}

	var b strings.Builder
	if err := s.system.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// UserContent appends the accumulated trip info to the user's message.
func (s *PromptSpec) UserContent(message, current string) (string, error) {
	if current == "" || s.Context == "" {
		return message, nil
	}

	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\n")
	if err := s.context.Execute(&b, map[string]string{"Current": current}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *PromptSpec) cityTable() string {
	lines := make([]string, 0, len(s.Cities))
	for _, c := range s.Cities {
		airports := make([]string, 0, len(c.Airports))
		for _, a := range c.Airports {
			airports = append(airports, fmt.Sprintf("%s(%s)", a.Code, a.Name))
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", c.Name, strings.Join(airports, "/")))
	}
	return strings.Join(lines, "\n")
}

func (s *PromptSpec) airlineTable() string {
	lines := make([]string, 0, len(s.Airlines))
	for _, a := range s.Airlines {
		lines = append(lines, fmt.Sprintf("- %s: %s", a.Code, a.Name))
	}
	return strings.Join(lines, "\n")
}
