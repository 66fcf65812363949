package translations

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/trans"
)

// Default change message templates.
const (
	DefaultAddMessage    = "[{{ .ComponentName }}] Added translation using Weblate ({{ .LanguageName }})\n\n"
	DefaultDeleteMessage = "[{{ .ComponentName }}] Deleted translation using Weblate ({{ .LanguageName }})\n\n"
)

// MessageData is the data available to message templates.
type MessageData struct {
	ProjectName   string
	ComponentName string
	LanguageCode  string
	LanguageName  string
	Filename      string
}

// Messages renders the details of translation add and delete changes.
type Messages struct {
	add    *template.Template
	delete *template.Template
}

// NewMessages compiles the configured templates, using the defaults for
// empty ones.
func NewMessages(cfg config.CommitMessagesConfig) (*Messages, error) {
	add, err := compile("add", cfg.Add, DefaultAddMessage)
	if err != nil {
		return nil, err
	}
	del, err := compile("delete", cfg.Delete, DefaultDeleteMessage)
	if err != nil {
		return nil, err
	}
	return &Messages{add: add, delete: del}, nil
}

func compile(name, src, fallback string) (*template.Template, error) {
	if strings.TrimSpace(src) == "" {
		src = fallback
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid %s message template: %w", name, err)
	}
	return tmpl, nil
}

// Add renders the message of a new translation.
func (m *Messages) Add(c *trans.Component, t *trans.Translation) (string, error) {
	return render(m.add, c, t)
}

// Delete renders the message of a removed translation.
func (m *Messages) Delete(c *trans.Component, t *trans.Translation) (string, error) {
	return render(m.delete, c, t)
}

func render(tmpl *template.Template, c *trans.Component, t *trans.Translation) (string, error) {
	data := MessageData{
		ProjectName:   c.ProjectSlug,
		ComponentName: c.Name,
		LanguageCode:  t.LanguageCode,
		LanguageName:  LanguageName(t.LanguageCode),
		Filename:      t.Filename,
	}
	if data.ComponentName == "" {
		data.ComponentName = c.Slug
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s message: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// LanguageName returns the English name of a language code such as "pt_BR",
// or the code itself when it is not a valid language tag.
func LanguageName(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
