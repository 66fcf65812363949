package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omprussia/weblate-omp/internal/trans"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"Save file", "Save file", 100},
		{"", "", 100},
		{"Save file", "Save files", 90},
		{"abc", "", 0},
		{"kitten", "sitting", 57},
		{"Привет", "Привет!", 85},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, similarity(tt.a, tt.b))
			assert.Equal(t, tt.want, similarity(tt.b, tt.a))
		})
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	private := &trans.Project{ID: 7}
	shared := &trans.Project{ID: 7, ContributeSharedTM: true}
	user := &trans.User{ID: 3}

	assert.Equal(t, []int{10000007}, Categories(private, nil))
	assert.Equal(t, []int{10000007, 20000003}, Categories(private, user))
	assert.Equal(t, []int{10000007, 20000003, trans.CategoryShared}, Categories(shared, user))
	assert.Equal(t, []int{10000007, trans.CategoryShared}, ReadCategories(private))
}
