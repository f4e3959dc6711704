package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Debate_Community/internal/metrics"
	"Debate_Community/internal/pkg"
)

var (
	ErrUnavailable  = errors.New("content classifier unavailable")
	ErrUnknownLabel = errors.New("unknown classifier label")
)

// Assessment 分类器原始输出，Label 由 Gate 统一解释
type Assessment struct {
	Label      string
	Reason     string
	Categories []string
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Assessment, error)
}

// ClassifierFunc 方便测试和简单场景
type ClassifierFunc func(ctx context.Context, text string) (Assessment, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (Assessment, error) {
	return f(ctx, text)
}

type Gate struct {
	classifier Classifier
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Gate)

func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

func NewGate(c Classifier, opts ...Option) *Gate {
	g := &Gate{classifier: c, timeout: 5 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Moderate 分类失败时最多重试一次，之后返回 ErrUnavailable（fail closed）
func (g *Gate) Moderate(ctx context.Context, text string) (Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return Approved{}, nil
	}
	start := time.Now()
	a, err := pkg.RetryOnce(ctx, func(ctx context.Context) (Assessment, error) {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.classifier.Classify(cctx, text)
	})
	g.metrics.ClassifyDuration(time.Since(start).Seconds())
	if err != nil {
		g.logger.ErrorContext(ctx, "classifier call failed", "err", err)
		g.metrics.Verdict("unavailable")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	v, err := normalize(a)
	if err != nil {
		g.logger.ErrorContext(ctx, "classifier returned unusable verdict", "label", a.Label)
		g.metrics.Verdict("unavailable")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	g.metrics.Verdict(v.String())
	return v, nil
}

func normalize(a Assessment) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(a.Label)) {
	case "approved", "approve", "allow", "ok", "clean":
		return Approved{}, nil
	case "censored", "censor", "flag", "flagged":
		return Censored{Reason: reasonOr(a, "flagged content"), Categories: a.Categories}, nil
	case "rejected", "reject", "block", "blocked", "eliminated":
		return Rejected{Reason: reasonOr(a, "content not allowed"), Categories: a.Categories}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownLabel, a.Label)
}

func reasonOr(a Assessment, fallback string) string {
	if r := strings.TrimSpace(a.Reason); r != "" {
		return r
	}
	if len(a.Categories) > 0 {
		return strings.Join(a.Categories, ", ")
	}
	return fallback
}
