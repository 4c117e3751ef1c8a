package engine

import "fmt"

type TemplateString string

func (t TemplateString) Validate() error {
	if _, err := Parse(string(t)); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

func (t TemplateString) Render(ev Evaluator, env Environment) (string, error) {
	doc, err := Parse(string(t))
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return NewExecutor(ev).Execute(doc, env)
}
