package service

import (
	"time"

	"Debate_Community/internal/pkg"
)

const (
	DefaultMaxAttempts    = 5
	DefaultStoreTimeout   = 3 * time.Second
	DefaultSentinel       = "[deleted]"
	DefaultAnonymizeChunk = 100
)

// Options 各服务共享的可调参数，零值取默认
type Options struct {
	MaxAttempts       int
	StoreTimeout      time.Duration
	ModerateEdits     bool
	RedactionSentinel string
	AnonymizeChunk    int
	Now               func() time.Time
	NewID             func() string
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.RedactionSentinel == "" {
		o.RedactionSentinel = DefaultSentinel
	}
	if o.AnonymizeChunk <= 0 {
		o.AnonymizeChunk = DefaultAnonymizeChunk
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = pkg.NewID
	}
	return o
}
