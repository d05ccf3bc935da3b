// Package webui embeds the server-rendered admin templates.
package webui

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed admin.html
var templateFS embed.FS

// Templates parses the embedded admin templates for gin's HTML renderer.
func Templates() (*template.Template, error) {
	tpl, errParse := template.ParseFS(templateFS, "admin.html")
	if errParse != nil {
		return nil, fmt.Errorf("webui: parse templates: %w", errParse)
	}
	return tpl, nil
}
