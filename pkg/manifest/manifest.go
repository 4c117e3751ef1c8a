package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pageforge/pageforge/pkg/engine"
	v "github.com/pageforge/pageforge/pkg/validator"

	"gopkg.in/yaml.v3"
)

// Page is one rendered document in a manifest. The template source comes
// from either a file next to the manifest or an inline template string.
type Page struct {
	Name     string                `yaml:"name"`
	Template string                `yaml:"template,omitempty"` // path relative to the manifest
	Inline   engine.TemplateString `yaml:"inline,omitempty"`
	Output   string                `yaml:"output,omitempty"` // defaults to the page name
	Data     map[string]any        `yaml:"data,omitempty"`
}

func (p Page) Validate() error {
	return v.All(
		v.NotEmpty(p.Name, "page.name"),
		v.HasNoTags(p.Name, "page.name"),
		v.HasNoTags(p.Output, "page.output"),
		func() error {
			count := 0
			if p.Template != "" {
				count++
			}
			if p.Inline != "" {
				count++
			}
			if count == 0 {
				return fmt.Errorf("page %q must have one of template or inline", p.Name)
			}
			if count > 1 {
				return fmt.Errorf("page %q must have only one of template or inline", p.Name)
			}
			return nil
		}(),
		p.Inline.Validate(),
	)
}

// OutputName returns the file name the page renders to.
func (p Page) OutputName() string {
	if p.Output != "" {
		return p.Output
	}
	return p.Name
}

// Check is an expectation over a page's rendered output, evaluated by the
// check command. Data entries override the page and manifest data.
type Check struct {
	Name string         `yaml:"name"`
	Page string         `yaml:"page"`
	Data map[string]any `yaml:"data,omitempty"`
	Want string         `yaml:"want"`
}

func (c Check) Validate() error {
	return v.All(
		v.NotEmpty(c.Name, "check.name"),
		v.NotEmpty(c.Page, "check.page"),
	)
}

// Manifest describes a set of pages rendered from a shared data seed.
// Snippets are small templates rendered first against the seed; their
// output is bound under the snippet name and visible to every page.
type Manifest struct {
	Name     string                           `yaml:"name"`
	Data     map[string]any                   `yaml:"data,omitempty"`
	Snippets map[string]engine.TemplateString `yaml:"snippets,omitempty"`
	Pages    []Page                           `yaml:"pages"`
	Checks   []Check                          `yaml:"checks,omitempty"`

	dir string
}

// Load reads and validates a manifest file. Unknown fields are rejected.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}
	m.dir = filepath.Dir(path)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %q: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	names := make([]string, len(m.Pages))
	for i, p := range m.Pages {
		names[i] = p.Name
	}
	return v.All(
		v.NotEmpty(m.Name, "name"),
		v.Each(m.Pages),
		v.NoDuplicates(names, "page names"),
		v.MapDict(m.Snippets, func(key string, tpl engine.TemplateString) error {
			return v.All(
				v.NotEmpty(key, "snippet key"),
				v.HasNoTags(key, "snippet key"),
				tpl.Validate(),
			)
		}, "snippets"),
		v.Each(m.Checks),
		v.Map(m.Checks, func(c Check, description string) error {
			if m.page(c.Page) == nil {
				return fmt.Errorf("%s references unknown page %q", description, c.Page)
			}
			return nil
		}, "checks"),
	)
}

func (m *Manifest) page(name string) *Page {
	for i := range m.Pages {
		if m.Pages[i].Name == name {
			return &m.Pages[i]
		}
	}
	return nil
}

// RenderedPage is the result of building one page.
type RenderedPage struct {
	Name   string
	Output string
	Text   string
}

// Build renders every page. Each page gets a fresh evaluator from newEval,
// so state set by one page's code blocks never leaks into another.
func (m *Manifest) Build(newEval func() engine.Evaluator) ([]RenderedPage, error) {
	results := make([]RenderedPage, 0, len(m.Pages))
	for _, p := range m.Pages {
		text, err := m.renderPage(p, nil, newEval())
		if err != nil {
			return nil, fmt.Errorf("rendering page %q: %w", p.Name, err)
		}
		results = append(results, RenderedPage{
			Name:   p.Name,
			Output: p.OutputName(),
			Text:   text,
		})
	}
	return results, nil
}

// CheckFailure reports one failed check. Err is set when rendering itself
// failed; otherwise Got holds the mismatching output.
type CheckFailure struct {
	Check string
	Got   string
	Want  string
	Err   error
}

// RunChecks renders the page referenced by each check, with the check's
// data overriding the page's, and compares the output against Want.
func (m *Manifest) RunChecks(newEval func() engine.Evaluator) []CheckFailure {
	var failures []CheckFailure
	for _, c := range m.Checks {
		p := m.page(c.Page)
		got, err := m.renderPage(*p, c.Data, newEval())
		if err != nil {
			failures = append(failures, CheckFailure{Check: c.Name, Err: err})
			continue
		}
		if got != c.Want {
			failures = append(failures, CheckFailure{Check: c.Name, Got: got, Want: c.Want})
		}
	}
	return failures
}

func (m *Manifest) renderPage(p Page, overrides map[string]any, ev engine.Evaluator) (string, error) {
	src := string(p.Inline)
	if p.Template != "" {
		b, err := os.ReadFile(filepath.Join(m.dir, p.Template))
		if err != nil {
			return "", fmt.Errorf("reading template: %w", err)
		}
		src = string(b)
	}

	doc, err := engine.Parse(src)
	if err != nil {
		return "", err
	}

	env := engine.NewEnvironmentFromAny(mergeData(m.Data, p.Data, overrides))
	for name, tpl := range m.Snippets {
		out, err := tpl.Render(ev, engine.NewEnvironmentFromAny(mergeData(m.Data, p.Data, overrides)))
		if err != nil {
			return "", fmt.Errorf("rendering snippet %q: %w", name, err)
		}
		env[name] = engine.StringValue(out)
	}

	return engine.NewExecutor(ev).Execute(doc, env)
}

// mergeData overlays maps left to right; later entries win.
func mergeData(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for _, layer := range layers {
		for k, val := range layer {
			merged[k] = val
		}
	}
	return merged
}
