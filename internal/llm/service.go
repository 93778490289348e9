package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	maxQuizQuestions = 5
	maxFlashcards    = 7

	// Last history entries fed into the chat prompt.
	chatContextDepth = 10

	// Web pages are truncated before prompting to stay clear of token limits.
	maxPageChars = 15000

	groqMapConcurrency = 5
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Service implements Client over a Gemini primary and an optional Groq/xAI
// fallback. Gemini handles everything in one shot; the fallback path
// map-reduces chunk summaries because its context window is smaller.
type Service struct {
	gemini *GeminiClient
	groq   *GroqClient
	http   *http.Client
}

func NewService(gemini *GeminiClient, groq *GroqClient, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Service{gemini: gemini, groq: groq, http: httpClient}
}

func (s *Service) ChatWithMemory(ctx context.Context, userMessage string, history []Message, language string) (string, error) {
	if s.gemini == nil {
		return "", fmt.Errorf("chat requires the gemini provider")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(chatSystemTemplate, baseSystemPrompt, language))
	sb.WriteString("\n\n")

	if len(history) > chatContextDepth {
		history = history[len(history)-chatContextDepth:]
	}
	for _, msg := range history {
		role := "User"
		if msg.Role == RoleAssistant {
			role = "Assistant"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(userMessage)
	sb.WriteString("\nAssistant:")

	return s.gemini.GenerateRaw(ctx, sb.String())
}

func (s *Service) SummarizeURL(ctx context.Context, url, language string) (string, error) {
	if s.gemini == nil {
		return "", fmt.Errorf("url summarization requires the gemini provider")
	}

	text, err := s.fetchPageText(ctx, url)
	if err != nil {
		return "", err
	}

	return s.gemini.Generate(ctx, fmt.Sprintf(urlSummaryTemplate, language, url, text))
}

func (s *Service) fetchPageText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("couldn't access that URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("couldn't access that URL (status %d), it may be blocked or require login", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	text := scriptStyleRe.ReplaceAllString(string(body), "")
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if len(text) > maxPageChars {
		cut := maxPageChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	if len(text) < 50 {
		return "", fmt.Errorf("couldn't extract meaningful content from that URL")
	}
	return text, nil
}

func (s *Service) ProcessDocument(ctx context.Context, chunks []string, task Task, language string) (string, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("no text could be extracted from the document")
	}

	if s.gemini != nil {
		// Gemini's context window takes the whole document, no map phase.
		out, err := s.gemini.Generate(ctx, reducePrompt(task, strings.Join(chunks, "\n\n"), language))
		if err == nil {
			return out, nil
		}
		if s.groq == nil {
			return "", err
		}
		log.Printf("gemini failed, falling back to groq: %v", err)
	}
	if s.groq == nil {
		return "", fmt.Errorf("no llm provider configured")
	}
	return s.mapReduce(ctx, chunks, task, language)
}

// mapReduce summarizes each chunk independently, then reduces the combined
// summaries with the task prompt.
func (s *Service) mapReduce(ctx context.Context, chunks []string, task Task, language string) (string, error) {
	summaries := make([]string, len(chunks))
	sem := make(chan struct{}, groqMapConcurrency)
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, err := s.groq.Generate(ctx, fmt.Sprintf(mapPhaseTemplate, chunk), 800)
			if err != nil {
				log.Printf("map phase failed for chunk %d: %v", i+1, err)
				summaries[i] = "Error summarizing this portion."
				return
			}
			summaries[i] = fmt.Sprintf("Section %d:\n%s", i+1, out)
		}(i, chunk)
	}
	wg.Wait()

	combined := strings.Join(summaries, "\n\n")
	return s.groq.Generate(ctx, reducePrompt(task, combined, language), 2000)
}

func (s *Service) GenerateQuiz(ctx context.Context, chunks []string, language string) ([]Question, error) {
	if s.gemini == nil {
		return nil, fmt.Errorf("quiz generation requires the gemini provider")
	}

	raw, err := s.gemini.GenerateJSON(ctx, fmt.Sprintf(quizTemplate, language, strings.Join(chunks, "\n\n")))
	if err != nil {
		return nil, err
	}

	var questions []Question
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &questions); err != nil {
		log.Printf("quiz json parse error: %v, raw: %.500s", err, raw)
		return nil, nil
	}
	questions = gradeableQuestions(questions)
	if len(questions) > maxQuizQuestions {
		questions = questions[:maxQuizQuestions]
	}
	return questions, nil
}

// gradeableQuestions drops entries the model emitted without the fields the
// quiz needs: a question text and a correct letter to grade against.
func gradeableQuestions(questions []Question) []Question {
	kept := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Correct) == "" {
			continue
		}
		kept = append(kept, q)
	}
	return kept
}

func (s *Service) GenerateFlashcards(ctx context.Context, chunks []string, language string) ([]Flashcard, error) {
	if s.gemini == nil {
		return nil, fmt.Errorf("flashcard generation requires the gemini provider")
	}

	raw, err := s.gemini.GenerateJSON(ctx, fmt.Sprintf(flashcardTemplate, language, strings.Join(chunks, "\n\n")))
	if err != nil {
		return nil, err
	}

	var cards []Flashcard
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &cards); err != nil {
		log.Printf("flashcard json parse error: %v, raw: %.500s", err, raw)
		return nil, nil
	}
	if len(cards) > maxFlashcards {
		cards = cards[:maxFlashcards]
	}
	return cards, nil
}

func (s *Service) AnalyzeMedia(ctx context.Context, filePath string, kind MediaKind, language string) (string, error) {
	if s.gemini == nil {
		return "", fmt.Errorf("media analysis requires the gemini provider")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}

	var prompt, mimeType string
	switch kind {
	case MediaImage:
		prompt = fmt.Sprintf(imageAnalysisTemplate, language)
		mimeType = "image/jpeg"
	case MediaAudio:
		prompt = fmt.Sprintf(audioAnalysisTemplate, language)
		mimeType = "audio/ogg"
	default:
		return "", fmt.Errorf("unsupported media kind: %s", kind)
	}

	return s.gemini.GenerateWithMedia(ctx, prompt, mimeType, data)
}

// stripCodeFences removes a surrounding markdown fence when the model wraps
// its JSON despite instructions.
func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.LastIndex(raw, "```"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
