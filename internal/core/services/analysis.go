package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driving"
	"github.com/bookwise-labs/bookwise-core/internal/runtime"
)

// analysisPromptFormat asks for a structured study breakdown of a book.
const analysisPromptFormat = `Analyze this textbook/educational book thoroughly. Extract the table of contents, identify key topics, assess difficulty level, estimate study time, determine prerequisites, and provide a comprehensive learning path. Be detailed and accurate.

Book title: %s

Book content:
%s`

// analysisSchemaHint describes the expected JSON shape to the model.
const analysisSchemaHint = `{
  "title": "string",
  "author": "string (optional)",
  "subject": "string",
  "difficulty": "Beginner|Intermediate|Advanced|Expert",
  "estimated_study_hours": "number",
  "table_of_contents": [{"chapter": "string", "title": "string", "page_start": "number (optional)", "topics": ["string"], "estimated_minutes": "number", "difficulty": "Easy|Medium|Hard"}],
  "key_topics": [{"topic": "string", "importance": "High|Medium|Low", "chapters": ["string"]}],
  "prerequisites": ["string"],
  "learning_objectives": ["string"],
  "recommended_study_path": [{"step": "number", "description": "string", "chapters": ["string"], "estimated_time": "string"}],
  "summary": "string",
  "target_audience": "string",
  "practice_recommendations": ["string"]
}`

// maxAnalysisContentBytes bounds how much of the book is sent to the
// model in one analysis request.
const maxAnalysisContentBytes = 200_000

// Ensure analysisService implements AnalysisService
var _ driving.AnalysisService = (*analysisService)(nil)

// analysisService extracts structured study metadata via the
// generation service
type analysisService struct {
	services *runtime.Services
	logger   *slog.Logger
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(services *runtime.Services, logger *slog.Logger) driving.AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &analysisService{
		services: services,
		logger:   logger,
	}
}

// AnalyzeBook asks the generation service for a study breakdown.
func (s *analysisService) AnalyzeBook(ctx context.Context, title, content string) (*domain.BookAnalysis, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	generationService := s.services.GenerationService()
	if generationService == nil {
		return nil, fmt.Errorf("%w: no generation service configured", domain.ErrServiceUnavailable)
	}

	if len(content) > maxAnalysisContentBytes {
		content = content[:maxAnalysisContentBytes]
	}

	start := time.Now()
	prompt := fmt.Sprintf(analysisPromptFormat, title, content)

	var analysis domain.BookAnalysis
	if err := generationService.GenerateJSON(ctx, prompt, analysisSchemaHint, &analysis); err != nil {
		return nil, fmt.Errorf("%w: analyzing book: %v", domain.ErrProviderFailure, err)
	}

	if analysis.Title == "" {
		analysis.Title = title
	}

	s.logger.Info("book analyzed",
		"title", analysis.Title,
		"chapters", len(analysis.TableOfContents),
		"duration", time.Since(start),
	)

	return &analysis, nil
}
