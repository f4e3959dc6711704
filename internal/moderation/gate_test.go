package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(a Assessment) ClassifierFunc {
	return func(context.Context, string) (Assessment, error) { return a, nil }
}

func TestGate_NormalizesLabels(t *testing.T) {
	tests := []struct {
		name  string
		in    Assessment
		check func(t *testing.T, v Verdict)
	}{
		{"approved", Assessment{Label: "APPROVED"}, func(t *testing.T, v Verdict) {
			assert.IsType(t, Approved{}, v)
		}},
		{"censored keeps reason", Assessment{Label: "flag", Reason: "rude", Categories: []string{"harassment"}}, func(t *testing.T, v Verdict) {
			c, ok := v.(Censored)
			require.True(t, ok)
			assert.Equal(t, "rude", c.Reason)
			assert.Equal(t, []string{"harassment"}, c.Categories)
		}},
		{"rejected falls back to categories", Assessment{Label: "Rejected", Categories: []string{"hate", "violence"}}, func(t *testing.T, v Verdict) {
			r, ok := v.(Rejected)
			require.True(t, ok)
			assert.Equal(t, "hate, violence", r.Reason)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewGate(fixed(tt.in)).Moderate(context.Background(), "some text")
			require.NoError(t, err)
			tt.check(t, v)
		})
	}
}

func TestGate_EmptyTextSkipsClassifier(t *testing.T) {
	var calls int32
	g := NewGate(ClassifierFunc(func(context.Context, string) (Assessment, error) {
		atomic.AddInt32(&calls, 1)
		return Assessment{Label: "rejected"}, nil
	}))
	v, err := g.Moderate(context.Background(), "   ")
	require.NoError(t, err)
	assert.IsType(t, Approved{}, v)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGate_RetriesOnceThenFailsClosed(t *testing.T) {
	var calls int32
	flaky := ClassifierFunc(func(context.Context, string) (Assessment, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return Assessment{}, errors.New("connection reset")
		}
		return Assessment{Label: "approved"}, nil
	})
	v, err := NewGate(flaky).Moderate(context.Background(), "hello")
	require.NoError(t, err)
	assert.IsType(t, Approved{}, v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	calls = 0
	down := ClassifierFunc(func(context.Context, string) (Assessment, error) {
		atomic.AddInt32(&calls, 1)
		return Assessment{}, errors.New("503")
	})
	_, err = NewGate(down).Moderate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGate_UnknownLabelFailsClosed(t *testing.T) {
	_, err := NewGate(fixed(Assessment{Label: "maybe"})).Moderate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGate_TimeoutBoundsEachAttempt(t *testing.T) {
	slow := ClassifierFunc(func(ctx context.Context, _ string) (Assessment, error) {
		<-ctx.Done()
		return Assessment{}, ctx.Err()
	})
	start := time.Now()
	_, err := NewGate(slow, WithTimeout(20*time.Millisecond)).Moderate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRulesClassifier_Default(t *testing.T) {
	c, err := NewRulesClassifier("")
	require.NoError(t, err)
	ctx := context.Background()

	a, err := c.Classify(ctx, "Tabs are better because they are configurable")
	require.NoError(t, err)
	assert.Equal(t, "approved", a.Label)

	a, err = c.Classify(ctx, "only an IDIOT would use spaces")
	require.NoError(t, err)
	assert.Equal(t, "censored", a.Label)
	assert.Equal(t, []string{"harassment"}, a.Categories)

	// 同时命中时高优先级规则胜出
	a, err = c.Classify(ctx, "you idiot, I will find you")
	require.NoError(t, err)
	assert.Equal(t, "rejected", a.Label)
}

func TestParseRules_InvalidAction(t *testing.T) {
	_, err := ParseRules([]byte("rules:\n  - name: x\n    action: shout\n    patterns: ['a']\n"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("rules:\n  - name: x\n    action: censor\n    patterns: ['(']\n"))
	assert.Error(t, err)
}

func TestOpenAIClassifier(t *testing.T) {
	var flagged map[string]bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/moderations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "modr-1",
			"model": "omni-moderation-latest",
			"results": []map[string]any{{
				"flagged":    len(flagged) > 0,
				"categories": flagged,
			}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClassifier("test-key", srv.URL+"/v1", "", nil)
	ctx := context.Background()

	flagged = map[string]bool{}
	a, err := c.Classify(ctx, "fine")
	require.NoError(t, err)
	assert.Equal(t, "approved", a.Label)

	flagged = map[string]bool{"harassment": true}
	a, err = c.Classify(ctx, "rude")
	require.NoError(t, err)
	assert.Equal(t, "censored", a.Label)
	assert.Equal(t, []string{"harassment"}, a.Categories)

	flagged = map[string]bool{"harassment": true, "harassment/threatening": true}
	a, err = c.Classify(ctx, "threat")
	require.NoError(t, err)
	assert.Equal(t, "rejected", a.Label)
	assert.ElementsMatch(t, []string{"harassment", "harassment/threatening"}, a.Categories)
}
