// Package trans holds the translation domain model shared by the store,
// the addons and the background jobs.
package trans

import (
	"slices"
	"time"
)

// TemplateLanguages are the language codes reserved for template translations.
// Translations in these languages are never regenerated.
var TemplateLanguages = []string{"en", "templates"}

// IsTemplateLanguage reports whether code is one of TemplateLanguages.
func IsTemplateLanguage(code string) bool {
	return slices.Contains(TemplateLanguages, code)
}

// Project groups components and owns the translation memory scope.
type Project struct {
	ID                 int64  `json:"id"`
	Slug               string `json:"slug"`
	Name               string `json:"name"`
	ContributeSharedTM bool   `json:"contribute_shared_tm"`
}

// Component is a translatable grouping with one template and many translations.
type Component struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`

	// ProjectSlug is denormalised for logging and memory origins.
	ProjectSlug string `json:"project_slug"`

	// Repo is the upstream repository URL and Branch the tracked branch.
	Repo   string `json:"repo"`
	Branch string `json:"branch"`

	// Template is the template file path relative to the repository root.
	Template       string `json:"template"`
	FileMask       string `json:"file_mask"`
	FileFormat     string `json:"file_format"`
	SourceLanguage string `json:"source_language"`
}

// FullSlug returns "project/component".
func (c *Component) FullSlug() string {
	return c.ProjectSlug + "/" + c.Slug
}

// Translation is the per-language instance of a component.
type Translation struct {
	ID           int64  `json:"id"`
	ComponentID  int64  `json:"component_id"`
	LanguageCode string `json:"language_code"`
	Filename     string `json:"filename"`
	IsSource     bool   `json:"is_source"`
}

// IsTemplate reports whether the translation uses a reserved template language.
func (t *Translation) IsTemplate() bool {
	return IsTemplateLanguage(t.LanguageCode)
}

// UnitState is the translation state of a single unit.
type UnitState int

// Unit states, ordered so that comparisons like state >= StateTranslated work.
const (
	StateEmpty      UnitState = 0
	StateFuzzy      UnitState = 10
	StateTranslated UnitState = 20
	StateApproved   UnitState = 30
	StateReadOnly   UnitState = 100
)

// Unit is a single translatable string.
type Unit struct {
	ID            int64     `json:"id"`
	TranslationID int64     `json:"translation_id"`
	Context       string    `json:"context"`
	Source        string    `json:"source"`
	Target        string    `json:"target"`
	State         UnitState `json:"state"`
}

// User is an account of the host platform.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// Change is an entry of the component history.
type Change struct {
	ID            int64     `json:"id"`
	Action        Action    `json:"action"`
	ComponentID   int64     `json:"component_id"`
	TranslationID int64     `json:"translation_id,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	Details       string    `json:"details,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Translation memory categories. Private and user categories are offsets
// added to the project and user identifiers.
const (
	CategoryShared        = 1
	CategoryPrivateOffset = 10000000
	CategoryUserOffset    = 20000000
)

// Addon is an addon installed on a component together with its settings.
type Addon struct {
	ID            int64          `json:"id"`
	ComponentID   int64          `json:"component_id"`
	Name          string         `json:"name"`
	Configuration map[string]any `json:"configuration"`
	ProjectScope  bool           `json:"project_scope"`
}
