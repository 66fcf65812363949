// Package tasks carries background jobs from addons to workers through a
// broker. Jobs hold their arguments by value so a worker never depends on
// the state of the scheduling process.
package tasks

// Task names, as stored in the envelope and used for routing.
const (
	TaskAutoTranslate = "auto_translate"
	TaskImportMemory  = "import_memory"
	TaskInstallAddon  = "install_addon"
)

// Job is a unit of background work.
type Job interface {
	TaskName() string
}

// AutoTranslate fills one translation from the configured sources.
type AutoTranslate struct {
	UserID        int64          `json:"user_id"`
	TranslationID int64          `json:"translation_id"`
	Configuration map[string]any `json:"configuration"`
}

// TaskName implements Job
func (AutoTranslate) TaskName() string { return TaskAutoTranslate }

// ImportMemory rebuilds the translation memory of a project.
type ImportMemory struct {
	ProjectID int64 `json:"project_id"`
	UserID    int64 `json:"user_id,omitempty"`
}

// TaskName implements Job
func (ImportMemory) TaskName() string { return TaskImportMemory }

// InstallAddon installs an addon on many projects at once. An empty
// ProjectSlugs list means every project.
type InstallAddon struct {
	Addon         string         `json:"addon"`
	Username      string         `json:"username"`
	ProjectSlugs  []string       `json:"project_slugs,omitempty"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// TaskName implements Job
func (InstallAddon) TaskName() string { return TaskInstallAddon }
