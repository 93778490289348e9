package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"studybuddy/internal/llm"
)

const (
	// DefaultLanguage is applied to every new session until the user picks one.
	DefaultLanguage = "English"

	maxHistory = 20
)

// userSession holds all per-user mutable state. It is owned exclusively by the
// Manager and never leaves it.
type userSession struct {
	phone      string
	firstVisit bool

	mediaID  string
	filename string
	chunks   []string

	language string

	history []llm.Message

	quizQuestions []llm.Question
	quizIndex     int
	quizScore     int
	quizActive    bool

	flashcards    []llm.Flashcard
	flashIndex    int
	flashActive   bool
	flashRevealed bool

	docsProcessed int
	lastActivity  time.Time
	streak        int
}

// Manager is the in-memory session store for all users. Sessions are created
// lazily on first reference and live for the process lifetime.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*userSession
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*userSession),
		now:      time.Now,
	}
}

// SetClock overrides the wall clock, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// get returns the session for phone, creating it if needed. Callers must hold mu.
func (m *Manager) get(phone string) *userSession {
	s, ok := m.sessions[phone]
	if !ok {
		s = &userSession{phone: phone, firstVisit: true, language: DefaultLanguage}
		m.sessions[phone] = s
	}
	return s
}

// IsFirstVisit reports whether this is the user's first interaction. The flag
// flips permanently on the first call, so the welcome fires exactly once.
func (m *Manager) IsFirstVisit(phone string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	if s.firstVisit {
		s.firstVisit = false
		return true
	}
	return false
}

// StoreDocument records the active document. Cached chunks belong to the
// previous document and are always cleared.
func (m *Manager) StoreDocument(phone, mediaID, filename string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	s.mediaID = mediaID
	s.filename = filename
	s.chunks = nil
}

// StoreChunks caches extracted text for the document identified by mediaID.
// The store is skipped when the active document changed in the meantime, so
// an extraction that raced a new upload cannot attach stale content to it.
func (m *Manager) StoreChunks(phone, mediaID string, chunks []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	if s.mediaID != mediaID {
		return false
	}
	s.chunks = append([]string(nil), chunks...)
	return true
}

// Document returns the active document reference, if any.
func (m *Manager) Document(phone string) (mediaID, filename string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	return s.mediaID, s.filename
}

// Chunks returns the cached extracted text, or nil if extraction has not run
// for the active document yet.
func (m *Manager) Chunks(phone string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	if s.chunks == nil {
		return nil
	}
	return append([]string(nil), s.chunks...)
}

func (m *Manager) SetLanguage(phone, language string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(phone).language = language
}

func (m *Manager) Language(phone string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(phone).language
}

// AddMessage appends to the user's chat history, evicting the oldest entries
// beyond the last maxHistory.
func (m *Manager) AddMessage(phone, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	s.history = append(s.history, llm.Message{Role: role, Content: content})
	if len(s.history) > maxHistory {
		s.history = append([]llm.Message(nil), s.history[len(s.history)-maxHistory:]...)
	}
}

func (m *Manager) History(phone string) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	return append([]llm.Message(nil), s.history...)
}

func (m *Manager) ClearHistory(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(phone).history = nil
}

// --- Quiz ---

func (m *Manager) StartQuiz(phone string, questions []llm.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	s.quizQuestions = append([]llm.Question(nil), questions...)
	s.quizIndex = 0
	s.quizScore = 0
	s.quizActive = true
}

// CurrentQuestion returns the question awaiting an answer, if the quiz is still
// running.
func (m *Manager) CurrentQuestion(phone string) (llm.Question, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	if s.quizIndex < len(s.quizQuestions) {
		return s.quizQuestions[s.quizIndex], true
	}
	return llm.Question{}, false
}

// QuizProgress returns the 1-based number of the current question and the total.
func (m *Manager) QuizProgress(phone string) (current, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	return s.quizIndex + 1, len(s.quizQuestions)
}

// AnswerQuiz grades the submitted letter against the current question and
// advances the quiz. Stale taps after the quiz ended are absorbed as a
// terminal no-op.
func (m *Manager) AnswerQuiz(phone, answer string) (correct bool, correctLetter string, isLast bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	if !s.quizActive || s.quizIndex >= len(s.quizQuestions) {
		return false, "", true
	}

	q := s.quizQuestions[s.quizIndex]
	correctLetter = strings.ToUpper(q.Correct)
	correct = strings.ToUpper(answer) == correctLetter
	if correct {
		s.quizScore++
	}

	s.quizIndex++
	isLast = s.quizIndex >= len(s.quizQuestions)
	if isLast {
		s.quizActive = false
	}
	return correct, correctLetter, isLast
}

// QuizResults returns score, total and the integer percentage.
func (m *Manager) QuizResults(phone string) (score, total, pct int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	total = len(s.quizQuestions)
	score = s.quizScore
	if total > 0 {
		pct = int(float64(score)/float64(total)*100 + 0.5)
	}
	return score, total, pct
}

// --- Flashcards ---

func (m *Manager) StartFlashcards(phone string, cards []llm.Flashcard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	s.flashcards = append([]llm.Flashcard(nil), cards...)
	s.flashIndex = 0
	s.flashActive = true
	s.flashRevealed = false
}

func (m *Manager) CurrentFlashcard(phone string) (llm.Flashcard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	if s.flashIndex < len(s.flashcards) {
		return s.flashcards[s.flashIndex], true
	}
	return llm.Flashcard{}, false
}

// FlashcardProgress returns the 1-based card number, the deck size and whether
// the current card's back is showing.
func (m *Manager) FlashcardProgress(phone string) (current, total int, revealed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	return s.flashIndex + 1, len(s.flashcards), s.flashRevealed
}

func (m *Manager) RevealFlashcard(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(phone).flashRevealed = true
}

// NextFlashcard advances the deck and hides the back again. It reports whether
// a card remains; on exhaustion the deck goes inactive.
func (m *Manager) NextFlashcard(phone string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	s.flashIndex++
	s.flashRevealed = false
	if s.flashIndex >= len(s.flashcards) {
		s.flashActive = false
		return false
	}
	return true
}

// FlashcardsActive reports whether a deck is mid-session.
func (m *Manager) FlashcardsActive(phone string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(phone).flashActive
}

// --- Study streak ---

// RecordActivity counts at most one study activity per calendar day and keeps
// the consecutive-day streak: same day is a no-op, the next day extends the
// streak, a gap of two or more days restarts it.
func (m *Manager) RecordActivity(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	today := dateOnly(m.now())

	switch {
	case s.lastActivity.IsZero():
		s.streak = 1
	case s.lastActivity.Equal(today):
		return // already counted today
	case today.Sub(s.lastActivity) == 24*time.Hour:
		s.streak++
	default:
		s.streak = 1
	}

	s.docsProcessed++
	s.lastActivity = today
}

// Streak returns the current consecutive-day streak and the all-time activity
// count.
func (m *Manager) Streak(phone string) (streak, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(phone)
	return s.streak, s.docsProcessed
}

// StreakMessage renders the motivational streak view.
func (m *Manager) StreakMessage(phone string) string {
	streak, total := m.Streak(phone)

	if streak <= 1 {
		return fmt.Sprintf("📄 *Documents studied:* %d", total)
	}

	fire := strings.Repeat("🔥", min(streak, 5))
	switch {
	case streak >= 7:
		return fmt.Sprintf("%s *%d-day study streak!* You're UNSTOPPABLE! 🏆\n📄 Total docs: %d", fire, streak, total)
	case streak >= 3:
		return fmt.Sprintf("%s *%d-day streak!* Keep the momentum going! 💪\n📄 Total docs: %d", fire, streak, total)
	default:
		return fmt.Sprintf("%s *%d-day streak!* Great consistency! ✨\n📄 Total docs: %d", fire, streak, total)
	}
}

// dateOnly strips a timestamp to its UTC calendar date so that day arithmetic
// is exact.
func dateOnly(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
