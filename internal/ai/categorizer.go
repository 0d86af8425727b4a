package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
)

// Categorizer wraps a Classifier and guarantees that every call yields
// a valid category. Classification failures of any kind (transport
// error, timeout, label outside the valid set) degrade to the default
// category instead of propagating; expense creation must never block on
// categorization.
type Categorizer struct {
	classifier Classifier
	timeout    time.Duration
	logger     *zap.Logger
}

// NewCategorizer creates a categorizer with a bounded per-call timeout.
func NewCategorizer(classifier Classifier, timeout time.Duration, logger *zap.Logger) *Categorizer {
	return &Categorizer{
		classifier: classifier,
		timeout:    timeout,
		logger:     logger,
	}
}

// Categorize resolves a category for the given expense fields. Single
// attempt, no retry; any failure returns the default category.
func (c *Categorizer) Categorize(ctx context.Context, merchant string, amount float64, description string) models.Category {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.classifier.Classify(ctx, merchant, amount, description)
	if err != nil {
		c.logger.Warn("Categorization failed, using default category",
			zap.String("merchant", merchant),
			zap.Error(err))
		return models.DefaultCategory
	}

	category, ok := models.ParseCategory(raw)
	if !ok {
		c.logger.Warn("Categorization returned invalid label, using default category",
			zap.String("merchant", merchant),
			zap.String("label", raw))
		return models.DefaultCategory
	}

	c.logger.Debug("Expense categorized",
		zap.String("merchant", merchant),
		zap.String("category", string(category)))

	return category
}
