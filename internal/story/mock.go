package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"storybook/internal/model"
)

// MockChatModel is a stand-in text model for local development without
// credentials. It parses the requested slide count out of the prompt and
// returns a canned story of that length.
type MockChatModel struct{}

var _ einomodel.BaseChatModel = (*MockChatModel)(nil)

var slideCountRe = regexp.MustCompile(`exactly (\d+) slides`)

func (m *MockChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	count := 3
	if len(input) > 0 {
		if match := slideCountRe.FindStringSubmatch(input[len(input)-1].Content); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				count = n
			}
		}
	}

	st := model.Story{
		Title:       "A Mock Adventure",
		Category:    "Adventure",
		Subcategory: "Treasure_Hunt",
	}
	for i := 1; i <= count; i++ {
		st.Slides = append(st.Slides, model.Slide{
			SlideNumber: i,
			StoryText:   fmt.Sprintf("Scene %d of the mock story. Our hero keeps exploring.", i),
			ImagePrompt: fmt.Sprintf("The main character from the reference image in mock scene %d, children's illustration style.", i),
		})
	}

	b, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return &schema.Message{Role: schema.Assistant, Content: "```json\n" + string(b) + "\n```"}, nil
}

func (m *MockChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported by mock model")
}
