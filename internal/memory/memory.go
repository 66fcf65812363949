// Package memory implements the translation memory: a bleve index of
// translated segment pairs partitioned into categories.
package memory

import (
	"context"
	"errors"
	"slices"

	"github.com/omprussia/weblate-omp/internal/trans"
)

var (
	// ErrLocked is returned when another writer holds the index lock.
	ErrLocked = errors.New("translation memory index is locked")
	// ErrLockRetriesExhausted is returned when a write kept finding the
	// index locked until its retry budget ran out.
	ErrLockRetriesExhausted = errors.New("translation memory lock retries exhausted")
)

// Record is a translated segment pair.
type Record struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Source         string `json:"source"`
	Target         string `json:"target"`
	Origin         string `json:"origin"`
	Category       int    `json:"category"`
}

// Query looks up memory matches for Text.
type Query struct {
	SourceLanguage string
	TargetLanguage string
	Text           string
	Categories     []int
	// Threshold is the minimal similarity, 0 to 100.
	Threshold int
	Limit     int
}

// Match is a lookup result with its similarity to the query, 0 to 100.
type Match struct {
	Record
	Similarity int
}

// Index stores and searches records
//
//go:generate mockgen -destination=mocks/mock_index.go -package=mocks -source=memory.go Index
type Index interface {
	Add(ctx context.Context, records []Record) error
	Lookup(ctx context.Context, q Query) ([]Match, error)
	Close() error
}

// Categories returns the categories a project writes to: the private
// project category, the user category when user is set, and the shared
// category when the project contributes to shared memory.
func Categories(project *trans.Project, user *trans.User) []int {
	categories := []int{trans.CategoryPrivateOffset + int(project.ID)}
	if user != nil {
		categories = append(categories, trans.CategoryUserOffset+int(user.ID))
	}
	if project.ContributeSharedTM {
		categories = append(categories, trans.CategoryShared)
	}
	return categories
}

// ReadCategories returns the categories searched for a project: its own
// private category and the shared one.
func ReadCategories(project *trans.Project) []int {
	return []int{trans.CategoryPrivateOffset + int(project.ID), trans.CategoryShared}
}

// similarity returns 100 for equal strings and decreases with the edit
// distance relative to the longer string.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 100
	}
	return 100 * (longest - levenshtein(ra, rb)) / longest
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func containsCategory(categories []int, c int) bool {
	return len(categories) == 0 || slices.Contains(categories, c)
}
