package service

import (
	"context"
	"slices"
	"strings"

	"Debate_Community/internal/model"
)

type PositionResult struct {
	DebateID   string         `json:"debateId"`
	Position   model.Position `json:"position"`
	Popularity int64          `json:"popularity"`
	Changed    bool           `json:"changed"`
}

// applyPosition 立场变更：先撤销旧立场的热度，再加上新立场的热度。
// 两个集合都会清掉该用户，保证支持和反对互斥。返回 false 表示立场未变。
func applyPosition(d *model.Debate, username string, next model.Position) bool {
	cur := d.PositionOf(username)
	if cur == next {
		return false
	}
	d.InFavor = removeAll(d.InFavor, username)
	d.Against = removeAll(d.Against, username)
	d.Popularity -= cur.Weight()

	switch next {
	case model.PositionFor:
		d.InFavor = append(d.InFavor, username)
	case model.PositionAgainst:
		d.Against = append(d.Against, username)
	}
	d.Popularity += next.Weight()
	return true
}

func removeAll(set []string, username string) []string {
	return slices.DeleteFunc(set, func(u string) bool { return u == username })
}

// SetPosition 设置用户在辩题上的立场，重复设置相同立场是幂等的
func (s *DebateService) SetPosition(ctx context.Context, debateID, username string, next model.Position) (*PositionResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ValidationError("username required")
	}
	switch next {
	case model.PositionFor, model.PositionAgainst, model.PositionNone:
	default:
		return nil, ValidationError("position must be for, against or none")
	}

	changed := false
	d, err := s.docs.mutate(ctx, "position", debateID, func(d *model.Debate) error {
		changed = applyPosition(d, username, next)
		if !changed {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.syncRanking(ctx, d)
	}
	return &PositionResult{DebateID: d.ID, Position: next, Popularity: d.Popularity, Changed: changed}, nil
}
