package moderation

import (
	"context"
	"fmt"
	"slices"

	"github.com/sashabaranov/go-openai"
)

// DefaultRejectCategories 命中这些类别直接拒绝，其余被标记的内容只做审查标记
var DefaultRejectCategories = []string{
	"sexual/minors",
	"self-harm/instructions",
	"hate/threatening",
	"harassment/threatening",
}

// OpenAIClassifier 基于 OpenAI moderations 接口
type OpenAIClassifier struct {
	client           *openai.Client
	model            string
	rejectCategories []string
}

func NewOpenAIClassifier(apiKey, baseURL, model string, rejectCategories []string) *OpenAIClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.ModerationOmniLatest
	}
	if len(rejectCategories) == 0 {
		rejectCategories = DefaultRejectCategories
	}
	return &OpenAIClassifier{
		client:           openai.NewClientWithConfig(cfg),
		model:            model,
		rejectCategories: rejectCategories,
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (Assessment, error) {
	resp, err := c.client.Moderations(ctx, openai.ModerationRequest{Input: text, Model: c.model})
	if err != nil {
		return Assessment{}, fmt.Errorf("openai moderation: %w", err)
	}
	if len(resp.Results) == 0 {
		return Assessment{}, fmt.Errorf("openai moderation returned no results")
	}
	res := resp.Results[0]
	cats := flaggedCategories(res.Categories)
	if !res.Flagged && len(cats) == 0 {
		return Assessment{Label: "approved"}, nil
	}
	for _, cat := range cats {
		if slices.Contains(c.rejectCategories, cat) {
			return Assessment{Label: "rejected", Reason: "content violates policy: " + cat, Categories: cats}, nil
		}
	}
	return Assessment{Label: "censored", Categories: cats}, nil
}

func flaggedCategories(c openai.ResultCategories) []string {
	pairs := []struct {
		name string
		hit  bool
	}{
		{"hate", c.Hate},
		{"hate/threatening", c.HateThreatening},
		{"harassment", c.Harassment},
		{"harassment/threatening", c.HarassmentThreatening},
		{"self-harm", c.SelfHarm},
		{"self-harm/intent", c.SelfHarmIntent},
		{"self-harm/instructions", c.SelfHarmInstructions},
		{"sexual", c.Sexual},
		{"sexual/minors", c.SexualMinors},
		{"violence", c.Violence},
		{"violence/graphic", c.ViolenceGraphic},
	}
	var out []string
	for _, p := range pairs {
		if p.hit {
			out = append(out, p.name)
		}
	}
	return out
}
