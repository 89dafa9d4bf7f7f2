package domain

const (
	// DefaultMaxChunks is the result-count cap applied when a caller
	// does not ask for a specific number of context chunks.
	DefaultMaxChunks = 5

	// DefaultSimilarityThreshold is the minimum similarity (on the
	// store's 0..1 cosine scale) for a chunk to count as relevant.
	DefaultSimilarityThreshold = 0.7
)

// RetrieveOptions narrows a retrieval call. Zero values mean
// "no filter" / "use defaults".
type RetrieveOptions struct {
	BookID    string `json:"book_id,omitempty"`
	ChapterID string `json:"chapter_id,omitempty"`
	MaxChunks int    `json:"max_chunks,omitempty"`
}

// EffectiveMaxChunks returns the configured cap or the default.
func (o RetrieveOptions) EffectiveMaxChunks() int {
	if o.MaxChunks > 0 {
		return o.MaxChunks
	}
	return DefaultMaxChunks
}

// BookAnalysis is the structured study metadata extracted from a book
// by the generation service.
type BookAnalysis struct {
	Title               string           `json:"title"`
	Author              string           `json:"author,omitempty"`
	Subject             string           `json:"subject"`
	Difficulty          string           `json:"difficulty"` // Beginner, Intermediate, Advanced, Expert
	EstimatedStudyHours float64          `json:"estimated_study_hours"`
	TableOfContents     []ChapterOutline `json:"table_of_contents"`
	KeyTopics           []KeyTopic       `json:"key_topics"`
	Prerequisites       []string         `json:"prerequisites"`
	LearningObjectives  []string         `json:"learning_objectives"`
	StudyPath           []StudyStep      `json:"recommended_study_path"`
	Summary             string           `json:"summary"`
	TargetAudience      string           `json:"target_audience"`
	PracticeTips        []string         `json:"practice_recommendations"`
}

// ChapterOutline describes one chapter in the analysed table of contents.
type ChapterOutline struct {
	Chapter          string   `json:"chapter"`
	Title            string   `json:"title"`
	PageStart        int      `json:"page_start,omitempty"`
	Topics           []string `json:"topics"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	Difficulty       string   `json:"difficulty"` // Easy, Medium, Hard
}

// KeyTopic ranks a topic by importance across chapters.
type KeyTopic struct {
	Topic      string   `json:"topic"`
	Importance string   `json:"importance"` // High, Medium, Low
	Chapters   []string `json:"chapters"`
}

// StudyStep is one step of the recommended study path.
type StudyStep struct {
	Step          int      `json:"step"`
	Description   string   `json:"description"`
	Chapters      []string `json:"chapters"`
	EstimatedTime string   `json:"estimated_time"`
}
