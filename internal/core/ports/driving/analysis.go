package driving

import (
	"context"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
)

// AnalysisService extracts structured study metadata from a book
type AnalysisService interface {
	// AnalyzeBook asks the generation service for a study breakdown of
	// the given book content: table of contents, difficulty, key
	// topics, prerequisites and a recommended study path.
	AnalyzeBook(ctx context.Context, title, content string) (*domain.BookAnalysis, error)
}
