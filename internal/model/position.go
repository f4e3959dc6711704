package model

import (
	"fmt"
	"strings"
)

type Position string

const (
	PositionFor     Position = "for"
	PositionAgainst Position = "against"
	PositionNone    Position = "none"
)

// ParsePosition 解析客户端传入的立场，大小写不敏感
func ParsePosition(s string) (Position, error) {
	switch Position(strings.ToLower(strings.TrimSpace(s))) {
	case PositionFor:
		return PositionFor, nil
	case PositionAgainst:
		return PositionAgainst, nil
	case PositionNone, "":
		return PositionNone, nil
	}
	return "", fmt.Errorf("invalid position %q", s)
}

// Weight 该立场对热度的贡献：支持 +2，反对 +1
func (p Position) Weight() int64 {
	switch p {
	case PositionFor:
		return 2
	case PositionAgainst:
		return 1
	default:
		return 0
	}
}
