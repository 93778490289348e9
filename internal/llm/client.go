package llm

import "context"

type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Task identifies a document-processing task. The set is closed: dispatch on it
// with a switch, not on raw button strings.
type Task string

const (
	TaskSummarize Task = "summarize"
	TaskExam      Task = "exam"
	TaskResume    Task = "resume"
	TaskAll       Task = "all"
)

// Question is one generated multiple-choice quiz item.
type Question struct {
	Question string `json:"question"`
	A        string `json:"A"`
	B        string `json:"B"`
	C        string `json:"C"`
	Correct  string `json:"correct"`
}

// Flashcard is one generated front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// MediaKind selects the analysis prompt for AnalyzeMedia.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// Client is the generative-model collaborator consumed by the flows.
//
// GenerateQuiz and GenerateFlashcards degrade to an empty slice when the model
// returns malformed structured output; they never fail the flow on a parse
// error.
type Client interface {
	ChatWithMemory(ctx context.Context, userMessage string, history []Message, language string) (string, error)
	SummarizeURL(ctx context.Context, url, language string) (string, error)
	ProcessDocument(ctx context.Context, chunks []string, task Task, language string) (string, error)
	GenerateQuiz(ctx context.Context, chunks []string, language string) ([]Question, error)
	GenerateFlashcards(ctx context.Context, chunks []string, language string) ([]Flashcard, error)
	AnalyzeMedia(ctx context.Context, filePath string, kind MediaKind, language string) (string, error)
}
