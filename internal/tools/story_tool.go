package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"storybook/internal/catalog"
	"storybook/internal/model"
)

// Generator is the slice of the story client the tool needs.
type Generator interface {
	Generate(ctx context.Context, category, subcategory string, slideCount int) (*model.Story, error)
}

// StoryTool exposes story generation as an eino tool so agent runtimes can
// invoke it alongside other tools.
type StoryTool struct {
	gen     Generator
	catalog *catalog.Catalog
}

// StoryToolArgs is the tool's argument schema.
type StoryToolArgs struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	NumSlides   int    `json:"num_slides"`
	UseRandom   bool   `json:"use_random"`
}

// StoryToolResp is the tool's result payload.
type StoryToolResp struct {
	Story   *model.Story `json:"story"`
	Message string       `json:"message"`
}

// NewStoryTool wires a StoryTool.
func NewStoryTool(gen Generator, cat *catalog.Catalog) *StoryTool {
	return &StoryTool{gen: gen, catalog: cat}
}

// Info describes the tool to the agent runtime.
func (t *StoryTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"category":    {Type: schema.String, Required: false, Desc: "story category from the catalog"},
		"subcategory": {Type: schema.String, Required: false, Desc: "subcategory of the chosen category"},
		"num_slides":  {Type: schema.Integer, Required: true, Desc: "number of slides, 3 to 10"},
		"use_random":  {Type: schema.Boolean, Required: false, Desc: "pick category and subcategory at random"},
	}
	return &schema.ToolInfo{
		Name:        "story_generate",
		Desc:        "Generate an illustrated children's story with per-slide image prompts",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun validates the arguments against the catalog and runs the
// story generator.
func (t *StoryTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args StoryToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	if !model.ValidSlideCount(args.NumSlides) {
		return "", fmt.Errorf("num_slides must be between %d and %d", model.MinSlides, model.MaxSlides)
	}

	category, subcategory := args.Category, args.Subcategory
	if args.UseRandom {
		category, subcategory = t.catalog.RandomPair()
	} else {
		if category == "" || subcategory == "" {
			return "", errors.New("category and subcategory required unless use_random is set")
		}
		if !t.catalog.Validate(category, subcategory) {
			return "", errors.New("unknown category/subcategory pair")
		}
	}

	st, err := t.gen.Generate(ctx, category, subcategory, args.NumSlides)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(StoryToolResp{Story: st, Message: "story generated"})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*StoryTool)(nil)
