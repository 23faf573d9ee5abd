package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKnownPairs(t *testing.T) {
	c := New()
	for category, subs := range c.Categories() {
		for _, sub := range subs {
			assert.True(t, c.Validate(category, sub), "%s/%s should validate", category, sub)
		}
	}
}

func TestValidateRejectsUnknownPairs(t *testing.T) {
	c := New()

	assert.False(t, c.Validate("Adventure", "Dragons"), "subcategory from another category")
	assert.False(t, c.Validate("Adventure", "Nope"))
	assert.False(t, c.Validate("Nope", "Treasure_Hunt"))
	assert.False(t, c.Validate("", ""))
}

func TestSubcategoriesUnknownCategory(t *testing.T) {
	c := New()
	assert.Empty(t, c.Subcategories("Nope"))
}

func TestCategoriesReturnsCopy(t *testing.T) {
	c := New()
	m := c.Categories()
	m["Adventure"][0] = "Mutated"
	delete(m, "Sports")

	fresh := c.Categories()
	assert.Equal(t, "Treasure_Hunt", fresh["Adventure"][0])
	assert.Contains(t, fresh, "Sports")
}

func TestRandomPairAlwaysValid(t *testing.T) {
	c := New()
	for i := 0; i < 1000; i++ {
		category, sub := c.RandomPair()
		require.True(t, c.Validate(category, sub))
	}
}

// Random selection is uniform over categories first, then subcategories,
// so a category with few subcategories must appear as often as a large
// one. A chi-square test against the per-category expectation catches a
// uniform-over-pairs regression.
func TestRandomPairUniformOverCategories(t *testing.T) {
	c := New()
	const draws = 10000

	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		category, _ := c.RandomPair()
		counts[category]++
	}

	names := c.Names()
	expected := float64(draws) / float64(len(names))
	chi2 := 0.0
	for _, name := range names {
		diff := float64(counts[name]) - expected
		chi2 += diff * diff / expected
	}

	// df=13, p=0.001 critical value is ~34.5; leave headroom against
	// rare unlucky runs.
	assert.Less(t, chi2, 50.0, "category distribution too skewed: %v", counts)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Treasure Hunt", DisplayName("Treasure_Hunt"))
	assert.Equal(t, "Holidays & Celebrations", DisplayName("Holidays_&_Celebrations"))
	assert.Equal(t, "Magic", DisplayName("Magic"))
}
