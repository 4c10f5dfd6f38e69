// Package template renders notification messages from stage trigger configuration.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Render executes templateStr against data. Missing keys render as empty strings.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("message").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"default": func(fallback string, value any) string {
				s, ok := value.(string)
				if !ok || s == "" {
					return fallback
				}

				return s
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.TrimSpace(strings.ReplaceAll(buf.String(), "<no value>", "")), nil
}
