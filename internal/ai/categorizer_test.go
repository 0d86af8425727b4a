package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
)

type stubClassifier struct {
	label string
	err   error
	block bool
}

func (s *stubClassifier) Classify(ctx context.Context, merchant string, amount float64, description string) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.label, s.err
}

func TestCategorize_ValidLabel(t *testing.T) {
	c := NewCategorizer(&stubClassifier{label: "travel"}, time.Second, zap.NewNop())

	got := c.Categorize(context.Background(), "Delta Airlines", 450, "flight to NYC")
	assert.Equal(t, models.CategoryTravel, got)
}

func TestCategorize_NormalizesLabel(t *testing.T) {
	c := NewCategorizer(&stubClassifier{label: "  Lodging \n"}, time.Second, zap.NewNop())

	got := c.Categorize(context.Background(), "Marriott", 220, "")
	assert.Equal(t, models.CategoryLodging, got)
}

func TestCategorize_FreeTextFallsBack(t *testing.T) {
	c := NewCategorizer(&stubClassifier{label: "I think this is maybe travel-ish"}, time.Second, zap.NewNop())

	got := c.Categorize(context.Background(), "Delta Airlines", 450, "")
	assert.Equal(t, models.DefaultCategory, got)
}

func TestCategorize_ClassifierErrorFallsBack(t *testing.T) {
	c := NewCategorizer(&stubClassifier{err: errors.New("api unavailable")}, time.Second, zap.NewNop())

	got := c.Categorize(context.Background(), "Staples", 45, "printer paper")
	assert.Equal(t, models.DefaultCategory, got)
}

func TestCategorize_TimeoutFallsBack(t *testing.T) {
	c := NewCategorizer(&stubClassifier{block: true}, 10*time.Millisecond, zap.NewNop())

	start := time.Now()
	got := c.Categorize(context.Background(), "Slow Merchant", 10, "")
	assert.Equal(t, models.DefaultCategory, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCategorize_AlwaysReturnsValidLabel(t *testing.T) {
	stubs := []*stubClassifier{
		{label: "travel"},
		{label: "TRAVEL"},
		{label: "nonsense"},
		{label: ""},
		{err: errors.New("boom")},
	}

	for _, stub := range stubs {
		c := NewCategorizer(stub, time.Second, zap.NewNop())
		got := c.Categorize(context.Background(), "m", 1, "d")

		_, ok := models.ParseCategory(string(got))
		assert.True(t, ok, "label %q must be from the fixed set", got)
	}
}
