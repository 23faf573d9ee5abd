package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"storybook/internal/prompt"
	"storybook/internal/volc"
)

// ErrGenerationFailed marks a slide whose image could not be produced by
// either the reference-edit call or the text-to-image fallback.
var ErrGenerationFailed = errors.New("image generation failed")

// Backend is the slice of the Ark client the renderer needs.
type Backend interface {
	GenerateImages(ctx context.Context, p volc.ImageGenParams) ([]string, error)
	FetchImage(ctx context.Context, src string) ([]byte, error)
}

// Renderer turns a slide's scene prompt plus the session avatar into image
// bytes. The primary call passes the avatar as a reference input so the
// model keeps the character's appearance; if that fails, a plain
// text-to-image call renders the scene without the reference. The degraded
// slide loses character consistency but the story still completes.
type Renderer struct {
	backend Backend
	prompts *prompt.Builder
	model   string
	size    string
	timeout time.Duration
	log     *logrus.Entry
}

// NewRenderer wires a Renderer for the given image model and output size.
func NewRenderer(backend Backend, prompts *prompt.Builder, model, size string, timeout time.Duration) *Renderer {
	return &Renderer{
		backend: backend,
		prompts: prompts,
		model:   model,
		size:    size,
		timeout: timeout,
		log:     logrus.WithField("component", "image"),
	}
}

// Render produces the illustration for one slide. avatar must be the raw
// session avatar bytes; sceneDescription is the slide's image prompt and
// storyText its narrative, used only to enrich the prompt.
func (r *Renderer) Render(ctx context.Context, avatar []byte, sceneDescription, storyText string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	primary := volc.ImageGenParams{
		Model:       r.model,
		Prompt:      r.prompts.ImagePrompt(sceneDescription, storyText, ""),
		Size:        r.size,
		ImageInputs: []string{dataURL(avatar)},
	}
	sources, primaryErr := r.backend.GenerateImages(ctx, primary)
	if primaryErr != nil {
		r.log.WithError(primaryErr).Warn("reference edit call failed, trying text-to-image fallback")
		fallback := volc.ImageGenParams{
			Model:  r.model,
			Prompt: r.prompts.FallbackImagePrompt(sceneDescription, ""),
			Size:   r.size,
		}
		var fallbackErr error
		sources, fallbackErr = r.backend.GenerateImages(ctx, fallback)
		if fallbackErr != nil {
			return nil, fmt.Errorf("%w: primary: %v; fallback: %w", ErrGenerationFailed, primaryErr, fallbackErr)
		}
	}

	data, err := r.backend.FetchImage(ctx, sources[0])
	if err != nil {
		return nil, fmt.Errorf("%w: fetch result: %w", ErrGenerationFailed, err)
	}
	return data, nil
}

// dataURL wraps raw image bytes as a data URL reference input.
func dataURL(img []byte) string {
	mime := http.DetectContentType(img)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)
}
