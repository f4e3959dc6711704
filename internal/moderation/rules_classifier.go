package moderation

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type RuleAction string

const (
	ActionReject RuleAction = "reject"
	ActionCensor RuleAction = "censor"
)

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

type Rule struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Action      RuleAction       `yaml:"action"`
	Priority    int              `yaml:"priority"`
	Categories  []string         `yaml:"categories"`
	Patterns    []string         `yaml:"patterns"`
	compiled    []*regexp.Regexp `yaml:"-"`
}

func (a *RuleAction) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch RuleAction(s) {
	case ActionReject, ActionCensor:
		*a = RuleAction(s)
		return nil
	default:
		return fmt.Errorf("invalid rule action %q", s)
	}
}

// RulesClassifier 本地正则规则分类器，不依赖外部服务
type RulesClassifier struct {
	rules []Rule
}

// NewRulesClassifier path 为空时使用内置规则
func NewRulesClassifier(path string) (*RulesClassifier, error) {
	data := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		data = b
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*RulesClassifier, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("rule %s: compile %q: %w", r.Name, p, err)
			}
			r.compiled = append(r.compiled, re)
		}
	}
	sort.SliceStable(f.Rules, func(i, j int) bool { return f.Rules[i].Priority > f.Rules[j].Priority })
	return &RulesClassifier{rules: f.Rules}, nil
}

func (c *RulesClassifier) Classify(ctx context.Context, text string) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	for _, r := range c.rules {
		for _, re := range r.compiled {
			if !re.MatchString(text) {
				continue
			}
			label := "censored"
			if r.Action == ActionReject {
				label = "rejected"
			}
			return Assessment{Label: label, Reason: r.Description, Categories: r.Categories}, nil
		}
	}
	return Assessment{Label: "approved"}, nil
}
