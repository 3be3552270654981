package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridfinder/internal/model"
)

func TestToggleAll_CopiesToCategories(t *testing.T) {
	s := NoneSelected()
	s.ToggleAll(true)
	assert.True(t, s.All())
	assert.Len(t, s.Selected(), len(model.Categories))

	s.ToggleAll(false)
	assert.False(t, s.All())
	assert.Empty(t, s.Selected())
}

func TestToggleCategory_ReconcilesAll(t *testing.T) {
	s := NoneSelected()

	require.NoError(t, s.ToggleCategory(model.CategoryPark, true))
	require.NoError(t, s.ToggleCategory(model.CategoryMuseum, true))
	assert.False(t, s.All(), "partial selection leaves all unchecked")

	require.NoError(t, s.ToggleCategory(model.CategoryUSAFood, true))
	require.NoError(t, s.ToggleCategory(model.CategoryAsianFood, true))
	assert.False(t, s.All())
	require.NoError(t, s.ToggleCategory(model.CategoryMVC, true))
	assert.True(t, s.All(), "checking the remaining categories checks all")
}

func TestToggleCategory_UncheckLeavesSiblings(t *testing.T) {
	s := AllSelected()
	require.NoError(t, s.ToggleCategory(model.CategoryPark, false))

	assert.False(t, s.All())
	assert.False(t, s.Checked(model.CategoryPark))
	for _, c := range []model.Category{model.CategoryUSAFood, model.CategoryAsianFood, model.CategoryMuseum, model.CategoryMVC} {
		assert.True(t, s.Checked(c), "sibling %s stays checked", c)
	}
}

func TestToggleCategory_AllSentinel(t *testing.T) {
	s := NoneSelected()
	require.NoError(t, s.ToggleCategory(model.CategoryAll, true))
	assert.True(t, s.All())
	assert.True(t, s.Checked(model.CategoryMuseum))
}

func TestToggleCategory_Unknown(t *testing.T) {
	s := NoneSelected()
	assert.Error(t, s.ToggleCategory(model.Category("zoo"), true))
}

func TestSelection_CopiesAreIndependent(t *testing.T) {
	a := AllSelected()
	b := a
	require.NoError(t, b.ToggleCategory(model.CategoryPark, false))

	assert.True(t, a.Checked(model.CategoryPark))
	assert.True(t, a.All())
	assert.False(t, b.Checked(model.CategoryPark))
}

func TestParseSelection(t *testing.T) {
	s, err := ParseSelection("park, museum")
	require.NoError(t, err)
	assert.Equal(t, []model.Category{model.CategoryPark, model.CategoryMuseum}, s.Selected())
	assert.False(t, s.All())
	assert.Equal(t, "park,museum", s.String())

	s, err = ParseSelection("")
	require.NoError(t, err)
	assert.True(t, s.All())
	assert.Equal(t, "all", s.String())

	s, err = ParseSelection("none")
	require.NoError(t, err)
	assert.Empty(t, s.Selected())
	assert.Equal(t, "none", s.String())

	s, err = ParseSelection("usa,asian,mvc,park,museum")
	require.NoError(t, err)
	assert.True(t, s.All())

	_, err = ParseSelection("park,zoo")
	assert.Error(t, err)
}

func TestSelection_JSONRoundTrip(t *testing.T) {
	in := State{MinScore: 3.5}
	var err error
	in.Selection, err = SelectionOf(model.CategoryPark)
	require.NoError(t, err)

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"selection":"park"`)

	var out State
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
