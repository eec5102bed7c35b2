package e2e

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// appConfigOptions is used to fill in a config template with details unique to
// a specific test environment. Keep this as small as possible so the input
// remains as close to a "real" YAML document as we can make it.
//
// Fields are exported so we can use them in templates.
type appConfigOptions struct {
	BaseURL  string
	LogLevel string
}

const configTemplate = `---
mailcatcher:
  baseURL: {{ .BaseURL }}
{{- if .LogLevel }}
logging:
  level: {{ .LogLevel }}
{{- end }}
`

// createAppConfig writes a configuration YAML doc to the given path, the way
// a test suite would keep one next to its tests.
func createAppConfig(path string, opts appConfigOptions) error {
	tmpl, err := template.New("conf").Parse(configTemplate)

	// This means the config template string was written incorrectly. Not
	// an issue with the module itself.
	if err != nil {
		return fmt.Errorf("couldn't parse the config template: %v", err)
	}

	var config bytes.Buffer

	err = tmpl.Execute(&config, opts)
	if err != nil {
		return fmt.Errorf("couldn't populate the config template: %v", err)
	}

	err = os.WriteFile(path, config.Bytes(), 0o644)
	if err != nil {
		return fmt.Errorf("couldn't write the config file: %v", err)
	}

	return nil
}
