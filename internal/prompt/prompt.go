package prompt

import (
	"fmt"
	"strings"

	"storybook/internal/catalog"
)

// Builder renders the prompts sent to the text and image models. Earlier
// drafts of this service carried several diverging copies of these
// templates; they are consolidated here behind a version selector so a new
// template can be trialled without touching call sites.
type Builder struct {
	version string
}

// DefaultVersion is the template set used when none is selected.
const DefaultVersion = "v1"

// NewBuilder returns a Builder for the given template version. An empty
// version selects DefaultVersion; unknown versions fall back to it as well.
func NewBuilder(version string) *Builder {
	if version == "" {
		version = DefaultVersion
	}
	return &Builder{version: version}
}

const storyTemplateV1 = `You are an expert children's story writer. Create an engaging, age-appropriate story for children aged 5-12 years.

STORY REQUIREMENTS:
- Category: %[1]s
- Subcategory: %[2]s
- Number of slides/scenes: %[3]d
- Each slide should have 2-3 sentences of story text
- Story should be educational, fun, and inspiring
- Use simple language appropriate for children
- Include positive messages and life lessons

CRITICAL IMAGE REQUIREMENTS:
- The user will upload an avatar image that represents the main character
- ALL image prompts MUST include the main character from the uploaded avatar
- The main character should be consistently present and recognizable in every scene
- Describe the character's actions, expressions, and interactions in each scene

IMPORTANT: Respond with ONLY a valid JSON object, no other text, in this structure:
{
    "story_title": "Title of the story",
    "category": "%[1]s",
    "subcategory": "%[2]s",
    "slides": [
        {
            "slide_number": 1,
            "story_text": "The story text for this slide (2-3 sentences)",
            "image_prompt": "Detailed image generation prompt featuring the main character from the uploaded avatar: appearance, actions, expressions, setting. Style: cartoon/illustration suitable for children."
        }
    ]
}

Every image prompt must feature the main character prominently, maintain character consistency across the whole story, and specify a children's illustration art style.

Create a complete story with exactly %[3]d slides.`

// StoryPrompt builds the text-generation prompt for one story request.
// The output embeds the category, subcategory and slide count verbatim and
// instructs the model to return only the story JSON object.
func (b *Builder) StoryPrompt(category, subcategory string, slideCount int) string {
	return fmt.Sprintf(storyTemplateV1, category, subcategory, slideCount)
}

const imageTemplateV1 = `Create a scene showing the exact same character from the reference image, maintaining their precise appearance, clothing, and features: %s. Keep the character's identity completely consistent with the reference image. %sStyle: %s.`

const defaultStyleNotes = "bright, friendly children's book illustration"

// ImagePrompt builds the image-edit prompt for one slide. The scene
// description comes from the story's image_prompt field; storyText adds
// narrative context and styleNotes override the default illustration style.
func (b *Builder) ImagePrompt(sceneDescription, storyText, styleNotes string) string {
	if styleNotes == "" {
		styleNotes = defaultStyleNotes
	}
	var context string
	if s := strings.TrimSpace(storyText); s != "" {
		context = "Scene context: " + s + " "
	}
	return fmt.Sprintf(imageTemplateV1, strings.TrimSpace(sceneDescription), context, styleNotes)
}

// FallbackImagePrompt is the degraded text-to-image prompt used when the
// reference-image edit call fails. It drops every mention of the reference
// character so the image model can render the scene on its own.
func (b *Builder) FallbackImagePrompt(sceneDescription, styleNotes string) string {
	if styleNotes == "" {
		styleNotes = defaultStyleNotes
	}
	return fmt.Sprintf("%s. Style: %s.", strings.TrimSpace(sceneDescription), styleNotes)
}

// Describe returns a short human-readable label for logging, e.g.
// "v1/Adventure/Treasure Hunt".
func (b *Builder) Describe(category, subcategory string) string {
	return b.version + "/" + catalog.DisplayName(category) + "/" + catalog.DisplayName(subcategory)
}
