package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"storybook/internal/model"
	"storybook/internal/prompt"
)

var (
	// ErrUpstreamUnavailable marks transport, timeout or credential
	// failures of the text model. Not retried.
	ErrUpstreamUnavailable = errors.New("text generation upstream unavailable")

	// ErrMalformedJSON marks a response that could not be parsed as JSON.
	// Eligible for one bounded retry; models occasionally emit near-JSON.
	ErrMalformedJSON = errors.New("malformed JSON from text model")
)

// ShapeError reports a parseable response that violates the story schema.
// Raw keeps the model output for diagnostics.
type ShapeError struct {
	Reason string
	Raw    string
}

func (e *ShapeError) Error() string {
	return "invalid story response shape: " + e.Reason
}

// Generator produces stories by prompting a chat model and validating the
// returned JSON against the story schema.
type Generator struct {
	chat    einomodel.BaseChatModel
	prompts *prompt.Builder
	retries int
	timeout time.Duration
	log     *logrus.Entry
}

// NewGenerator wires a Generator. retries bounds additional attempts after
// a malformed-JSON response; timeout caps each upstream call.
func NewGenerator(chat einomodel.BaseChatModel, prompts *prompt.Builder, retries int, timeout time.Duration) *Generator {
	return &Generator{
		chat:    chat,
		prompts: prompts,
		retries: retries,
		timeout: timeout,
		log:     logrus.WithField("component", "story"),
	}
}

// Generate asks the text model for a story and returns it once it passes
// schema validation. slideCount must already be range-checked by the caller.
func (g *Generator) Generate(ctx context.Context, category, subcategory string, slideCount int) (*model.Story, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	p := g.prompts.StoryPrompt(category, subcategory, slideCount)
	log := g.log.WithFields(logrus.Fields{
		"story":  g.prompts.Describe(category, subcategory),
		"slides": slideCount,
	})

	var st *model.Story
	attempt := 0
	op := func() error {
		attempt++
		msg, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(p)})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err))
		}
		raw := strings.TrimSpace(msg.Content)
		body, ok := extractJSON(raw)
		if !ok {
			log.WithField("attempt", attempt).Warn("no JSON object in model output")
			return fmt.Errorf("%w: no JSON object found", ErrMalformedJSON)
		}
		var s model.Story
		if err := json.Unmarshal([]byte(body), &s); err != nil {
			log.WithField("attempt", attempt).WithError(err).Warn("model output failed to parse")
			return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		if err := validateShape(&s, slideCount, raw); err != nil {
			return backoff.Permanent(err)
		}
		st = &s
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), uint64(g.retries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		var shapeErr *ShapeError
		if errors.As(err, &shapeErr) {
			log.WithField("raw", shapeErr.Raw).Error(shapeErr.Reason)
		}
		return nil, err
	}
	log.WithField("title", st.Title).Info("story generated")
	return st, nil
}

// extractJSON locates the outermost JSON object in raw, tolerating code
// fences or prose around it. It returns false when no object is present.
func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func validateShape(s *model.Story, slideCount int, raw string) error {
	fail := func(format string, args ...any) error {
		return &ShapeError{Reason: fmt.Sprintf(format, args...), Raw: raw}
	}
	if strings.TrimSpace(s.Title) == "" {
		return fail("missing story_title")
	}
	if strings.TrimSpace(s.Category) == "" {
		return fail("missing category")
	}
	if strings.TrimSpace(s.Subcategory) == "" {
		return fail("missing subcategory")
	}
	if len(s.Slides) != slideCount {
		return fail("expected %d slides, got %d", slideCount, len(s.Slides))
	}
	for i, slide := range s.Slides {
		if slide.SlideNumber != i+1 {
			return fail("slide %d has slide_number %d", i+1, slide.SlideNumber)
		}
		if strings.TrimSpace(slide.StoryText) == "" {
			return fail("empty story_text in slide %d", i+1)
		}
		if strings.TrimSpace(slide.ImagePrompt) == "" {
			return fail("empty image_prompt in slide %d", i+1)
		}
	}
	return nil
}
