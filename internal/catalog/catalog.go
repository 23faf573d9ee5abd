package catalog

import (
	"math/rand/v2"
	"strings"
)

// Catalog is the fixed set of story categories and their subcategories.
// It is built once at startup and read-only afterwards, so it is safe for
// concurrent use without locking.
type Catalog struct {
	categories map[string][]string
	names      []string
}

// New returns the built-in catalog.
func New() *Catalog {
	categories := map[string][]string{
		"Adventure": {
			"Treasure_Hunt",
			"Space_Exploration",
			"Jungle_Safari",
			"Underwater_World",
		},
		"Sports": {
			"Football",
			"Basketball",
			"Martial_Arts",
			"Gymnastics",
			"Racing",
		},
		"Safety": {
			"Stranger_Danger",
			"Fire_Safety",
			"Internet_Safety",
			"Road_Safety",
		},
		"Magic": {
			"Wizards",
			"Witches",
			"Potions",
			"Magical_Creatures",
			"Enchanted_Forests",
		},
		"Fairytale": {
			"Royalty",
			"Dragons",
			"Castles",
			"Villains",
			"Magical_Spells",
		},
		"Education": {"Science", "History", "Cooking", "Reading", "Art", "Music"},
		"Friendship": {
			"New_Friends",
			"Helping_Others",
			"Teamwork",
			"Overcoming_Challenges",
			"Loyalty",
		},
		"Family": {"Family_Adventures", "Holidays", "Sibling_Bonds", "Parenthood"},
		"Mystery": {
			"Detective_Stories",
			"Secret_Codes",
			"Hidden_Objects",
			"Puzzles",
		},
		"Holidays_&_Celebrations": {
			"Birthdays",
			"Christmas",
			"Halloween",
			"Easter",
			"Cultural_Festivals",
		},
		"Nature_&_Environment": {
			"Wildlife_Conservation",
			"Gardening",
			"Recycling",
			"Weather",
			"Ocean_Life",
		},
		"Special_Needs_Awareness": {
			"Understanding_Differences",
			"Inclusivity",
			"Overcoming_Obstacles",
			"Empathy",
		},
		"Careers_&_Aspirations": {
			"Future_Jobs",
			"Dream_Big",
			"Role_Models",
			"Achieving_Goals",
			"Passion_Projects",
		},
		"Travel_&_Exploration": {
			"World_Cultures",
			"Famous_Landmarks",
			"Language_Learning",
			"Expedition",
			"Time_Travel",
		},
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}

	return &Catalog{categories: categories, names: names}
}

// Categories returns a copy of the full category table.
func (c *Catalog) Categories() map[string][]string {
	out := make(map[string][]string, len(c.categories))
	for name, subs := range c.categories {
		out[name] = append([]string(nil), subs...)
	}
	return out
}

// Names returns the category names.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Subcategories returns the subcategories of category, or nil if unknown.
func (c *Catalog) Subcategories(category string) []string {
	return append([]string(nil), c.categories[category]...)
}

// Validate reports whether subcategory is listed under category.
func (c *Catalog) Validate(category, subcategory string) bool {
	for _, sub := range c.categories[category] {
		if sub == subcategory {
			return true
		}
	}
	return false
}

// RandomPair picks a category uniformly at random, then a subcategory
// uniformly from that category. Categories with few subcategories are as
// likely as large ones; the pick is not uniform over all pairs.
func (c *Catalog) RandomPair() (string, string) {
	category := c.names[rand.IntN(len(c.names))]
	subs := c.categories[category]
	return category, subs[rand.IntN(len(subs))]
}

// DisplayName turns a catalog identifier into its display form.
func DisplayName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
