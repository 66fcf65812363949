package trans

import "strconv"

// Action identifies the kind of a Change.
type Action int

// Change actions. The numeric values are stored in the database and are
// constrained by the changes_action_check constraint.
const (
	ActionUpdate Action = iota
	ActionComplete
	ActionChange
	ActionComment
	ActionSuggestion
	ActionNew
	ActionAuto
	ActionAccept
	ActionRevert
	ActionUpload
	ActionDictNew
	ActionDictEdit
	ActionDictUpload
	ActionNewSource
	ActionLock
	ActionUnlock
	ActionDuplicateString
	ActionCommit
	ActionPush
	ActionReset
	ActionMerge
	ActionRebase
	ActionFailedMerge
	ActionFailedRebase
	ActionParseError
	ActionRemoveTranslation
	ActionSuggestionDelete
	ActionReplace
	ActionFailedPush
	ActionSuggestionCleanup
	ActionSourceChange
	ActionNewUnit
	ActionBulkEdit
	ActionAccessEdit
	ActionAddUser
	ActionRemoveUser
	ActionApprove
	ActionMarkedEdit
)

// DefaultAction is the action of a change created without one.
const DefaultAction = ActionChange

var actionNames = [...]string{
	"Resource update",
	"Translation completed",
	"Translation changed",
	"Comment added",
	"Suggestion added",
	"New translation",
	"Automatic translation",
	"Suggestion accepted",
	"Translation reverted",
	"Translation uploaded",
	"Glossary added",
	"Glossary updated",
	"Glossary uploaded",
	"New source string",
	"Component locked",
	"Component unlocked",
	"Detected duplicate string",
	"Committed changes",
	"Pushed changes",
	"Reset repository",
	"Merged repository",
	"Rebased repository",
	"Failed merge on repository",
	"Failed rebase on repository",
	"Parse error",
	"Removed translation",
	"Suggestion removed",
	"Search and replace",
	"Failed push on repository",
	"Suggestion removed during cleanup",
	"Source string changed",
	"New string added",
	"Mass state change",
	"Changed visibility",
	"Added user",
	"Removed user",
	"Translation approved",
	"Marked for edit",
}

// MaxAction is the highest known action value.
const MaxAction = ActionMarkedEdit

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a >= ActionUpdate && a <= MaxAction
}

func (a Action) String() string {
	if !a.Valid() {
		return "Action(" + strconv.Itoa(int(a)) + ")"
	}
	return actionNames[a]
}
