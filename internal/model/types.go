package model

// Slide is one scene of a generated story: narrative text plus the prompt
// used to render its illustration.
type Slide struct {
	SlideNumber int    `json:"slide_number"`
	StoryText   string `json:"story_text"`
	ImagePrompt string `json:"image_prompt"`
}

// Story is the full generated story as returned by the text model.
type Story struct {
	Title       string  `json:"story_title"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Slides      []Slide `json:"slides"`
}

// StoryRequest carries the parameters of a story generation call.
// Category and Subcategory may be empty when UseRandom is set.
type StoryRequest struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	NumSlides   int    `json:"num_slides"`
	UseRandom   bool   `json:"use_random"`
}

const (
	MinSlides = 3
	MaxSlides = 10
)

// ValidSlideCount reports whether n is an acceptable slide count.
func ValidSlideCount(n int) bool {
	return n >= MinSlides && n <= MaxSlides
}
