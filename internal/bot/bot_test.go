package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"studybuddy/internal/llm"
	"studybuddy/internal/quota"
	"studybuddy/internal/ratelimit"
	"studybuddy/internal/session"
	"studybuddy/internal/whatsapp"
)

func init() {
	// Tests drive flows synchronously; the UX pauses only slow them down.
	quizNextDelay = 0
	moreOptionsDelay = 0
}

// --- fakes ---

type buttonSend struct {
	text    string
	buttons []whatsapp.Button
}

type listSend struct {
	body     string
	sections []whatsapp.Section
}

type fakeTransport struct {
	mu        sync.Mutex
	texts     []string
	buttons   []buttonSend
	lists     []listSend
	reactions []string
	reads     []string
	downloads int
	sendErr   error
}

func (f *fakeTransport) SendText(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeTransport) SendButtons(_ context.Context, _, text string, buttons []whatsapp.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttons = append(f.buttons, buttonSend{text: text, buttons: buttons})
	return nil
}

func (f *fakeTransport) SendList(_ context.Context, _, bodyText, _ string, sections []whatsapp.Section) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, listSend{body: bodyText, sections: sections})
	return nil
}

func (f *fakeTransport) MarkAsRead(_ context.Context, messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, messageID)
}

func (f *fakeTransport) SendReaction(_ context.Context, _, _, emoji string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, emoji)
}

func (f *fakeTransport) DownloadMedia(_ context.Context, mediaID, extension string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return fmt.Sprintf("/tmp/%s.%s", mediaID, extension), nil
}

func (f *fakeTransport) hasText(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.texts {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

func (f *fakeTransport) hasButtons(substr string) (buttonSend, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.buttons {
		if strings.Contains(b.text, substr) {
			return b, true
		}
	}
	return buttonSend{}, false
}

func (f *fakeTransport) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

type docCall struct {
	chunks   []string
	task     llm.Task
	language string
}

type fakeLLM struct {
	mu         sync.Mutex
	chatCalls  []string
	chatDepth  int
	urlCalls   []string
	docCalls   []docCall
	questions  []llm.Question
	cards      []llm.Flashcard
	mediaCalls []string
}

func (f *fakeLLM) ChatWithMemory(_ context.Context, userMessage string, history []llm.Message, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls = append(f.chatCalls, userMessage)
	f.chatDepth = len(history)
	return "reply to " + userMessage, nil
}

func (f *fakeLLM) SummarizeURL(_ context.Context, url, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urlCalls = append(f.urlCalls, url)
	return "summary of " + url, nil
}

func (f *fakeLLM) ProcessDocument(_ context.Context, chunks []string, task llm.Task, language string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docCalls = append(f.docCalls, docCall{chunks: chunks, task: task, language: language})
	return "processed " + string(task), nil
}

func (f *fakeLLM) GenerateQuiz(_ context.Context, _ []string, _ string) ([]llm.Question, error) {
	return f.questions, nil
}

func (f *fakeLLM) GenerateFlashcards(_ context.Context, _ []string, _ string) ([]llm.Flashcard, error) {
	return f.cards, nil
}

func (f *fakeLLM) AnalyzeMedia(_ context.Context, filePath string, _ llm.MediaKind, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mediaCalls = append(f.mediaCalls, filePath)
	return "analysis of " + filePath, nil
}

type fakeExtractor struct {
	mu           sync.Mutex
	extractCalls int
	removed      []string
	chunks       []string

	// onExtract runs mid-extraction, for interleaving concurrent events.
	onExtract func()
}

func (f *fakeExtractor) Validate(string) (bool, string) { return true, "Valid PDF" }

func (f *fakeExtractor) ExtractChunks(_ context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	f.extractCalls++
	hook := f.onExtract
	chunks := f.chunks
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return chunks, nil
}

func (f *fakeExtractor) Remove(filePath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, filePath)
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extractCalls
}

type testBot struct {
	bot       *Bot
	transport *fakeTransport
	llm       *fakeLLM
	extractor *fakeExtractor
	sessions  *session.Manager
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	transport := &fakeTransport{}
	model := &fakeLLM{}
	extractor := &fakeExtractor{chunks: []string{"chunk one", "chunk two"}}
	sessions := session.NewManager()
	b := New(transport, model, sessions, quota.NewTracker(1000), ratelimit.NewLimiter(5, time.Hour), extractor, nil)
	return &testBot{bot: b, transport: transport, llm: model, extractor: extractor, sessions: sessions}
}

// seen marks the user as a returning one so flows are not preempted by the
// welcome message.
func (tb *testBot) seen(phone string) {
	tb.sessions.IsFirstVisit(phone)
}

func (tb *testBot) handle(ev Event) {
	tb.bot.Handle(ev)
	tb.bot.Tasks().Wait()
}

func textEvent(phone, text string) Event {
	return Event{Type: EventText, From: phone, MessageID: "wamid.t", Text: text}
}

// --- tests ---

func TestFirstMessageGetsWelcome(t *testing.T) {
	tb := newTestBot(t)

	tb.handle(textEvent("111", "what is photosynthesis?"))

	if !tb.transport.hasText("Welcome") {
		t.Fatalf("welcome not sent: %v", tb.transport.texts)
	}
	if _, ok := tb.transport.hasButtons("explore"); !ok {
		t.Fatalf("explore buttons not sent")
	}
	if len(tb.llm.chatCalls) != 0 {
		t.Fatalf("first text must not reach the chat flow")
	}

	// Second message goes straight to chat.
	tb.handle(textEvent("111", "what is photosynthesis?"))
	if len(tb.llm.chatCalls) != 1 {
		t.Fatalf("expected 1 chat call, got %d", len(tb.llm.chatCalls))
	}
}

func TestQuotaGatesBeforeWelcome(t *testing.T) {
	transport := &fakeTransport{}
	b := New(transport, &fakeLLM{}, session.NewManager(), quota.NewTracker(0),
		ratelimit.NewLimiter(5, time.Hour), &fakeExtractor{}, nil)

	b.Handle(textEvent("111", "hi"))
	b.Tasks().Wait()

	if !transport.hasText("Monthly limit reached") {
		t.Fatalf("limit message not sent: %v", transport.texts)
	}
	if transport.hasText("Welcome") {
		t.Fatalf("welcome must not be sent when over quota")
	}
}

func TestChatFlowKeepsMemoryAndStreak(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	tb.handle(textEvent("111", "explain osmosis"))
	tb.handle(textEvent("111", "give an example"))

	if got := len(tb.llm.chatCalls); got != 2 {
		t.Fatalf("expected 2 chat calls, got %d", got)
	}
	// The second call sees the first exchange.
	if tb.llm.chatDepth != 2 {
		t.Fatalf("expected 2 history messages on second call, got %d", tb.llm.chatDepth)
	}
	if h := tb.sessions.History("111"); len(h) != 4 {
		t.Fatalf("expected 4 stored messages, got %d", len(h))
	}
	if streak, total := tb.sessions.Streak("111"); streak != 1 || total != 1 {
		t.Fatalf("activity not recorded: streak=%d total=%d", streak, total)
	}
	if !tb.transport.hasText("reply to explain osmosis") {
		t.Fatalf("model reply not delivered: %v", tb.transport.texts)
	}
}

func TestURLBypassesChat(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	tb.handle(textEvent("111", "check this out https://example.com/article please"))

	if len(tb.llm.urlCalls) != 1 || tb.llm.urlCalls[0] != "https://example.com/article" {
		t.Fatalf("url calls: %v", tb.llm.urlCalls)
	}
	if len(tb.llm.chatCalls) != 0 {
		t.Fatalf("url message must not reach the chat flow")
	}
	if !tb.transport.hasText("summary of https://example.com/article") {
		t.Fatalf("summary not delivered: %v", tb.transport.texts)
	}
	// The summary lands in memory for follow-up questions.
	if h := tb.sessions.History("111"); len(h) != 2 {
		t.Fatalf("expected summary in history, got %d messages", len(h))
	}
}

func TestCommands(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")
	tb.sessions.AddMessage("111", llm.RoleUser, "old")

	tb.handle(textEvent("111", "clear"))
	if len(tb.sessions.History("111")) != 0 {
		t.Fatalf("clear command did not wipe history")
	}
	if !tb.transport.hasText("memory cleared") {
		t.Fatalf("clear confirmation missing: %v", tb.transport.texts)
	}

	tb.handle(textEvent("111", "usage"))
	if !tb.transport.hasText("Monthly Usage") {
		t.Fatalf("usage stats missing")
	}
	if len(tb.llm.chatCalls) != 0 {
		t.Fatalf("commands must not reach the chat flow")
	}
}

func documentEvent(phone string) Event {
	return Event{
		Type: EventDocument, From: phone, MessageID: "wamid.d",
		Document: Document{MediaID: "media-1", Filename: "biology.pdf", MimeType: "application/pdf"},
	}
}

func TestDocumentFlowEndToEnd(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	// Upload: language list goes out, nothing heavy runs yet.
	tb.handle(documentEvent("111"))
	if len(tb.transport.lists) != 1 || !strings.Contains(tb.transport.lists[0].body, "biology.pdf") {
		t.Fatalf("language list not sent: %+v", tb.transport.lists)
	}
	if tb.transport.downloadCount() != 0 {
		t.Fatalf("upload alone must not download")
	}

	// Language pick: task buttons go out.
	tb.handle(Event{Type: EventListReply, From: "111", MessageID: "wamid.l", ReplyID: "lang_french"})
	if _, ok := tb.transport.hasButtons("biology.pdf"); !ok {
		t.Fatalf("task buttons not sent")
	}
	if got := tb.sessions.Language("111"); got != "French" {
		t.Fatalf("language not stored, got %q", got)
	}

	// Task pick: the pipeline runs once with the picked language.
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.b", ReplyID: "task_summarize"})
	if len(tb.llm.docCalls) != 1 {
		t.Fatalf("expected 1 document call, got %d", len(tb.llm.docCalls))
	}
	call := tb.llm.docCalls[0]
	if call.task != llm.TaskSummarize || call.language != "French" || len(call.chunks) != 2 {
		t.Fatalf("unexpected call: %+v", call)
	}
	if tb.extractor.calls() != 1 || tb.transport.downloadCount() != 1 {
		t.Fatalf("extraction ran %d times, downloads %d", tb.extractor.calls(), tb.transport.downloadCount())
	}
	if !tb.transport.hasText("processed summarize") {
		t.Fatalf("result not delivered: %v", tb.transport.texts)
	}

	// A second task on the same document reuses the cached chunks.
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.b2", ReplyID: "task_exam"})
	if len(tb.llm.docCalls) != 2 || tb.llm.docCalls[1].task != llm.TaskExam {
		t.Fatalf("second task not dispatched: %+v", tb.llm.docCalls)
	}
	if tb.extractor.calls() != 1 || tb.transport.downloadCount() != 1 {
		t.Fatalf("cached document was re-extracted: extracts=%d downloads=%d",
			tb.extractor.calls(), tb.transport.downloadCount())
	}

	// The downloaded file was cleaned up.
	if len(tb.extractor.removed) != 1 {
		t.Fatalf("downloaded file not removed: %v", tb.extractor.removed)
	}
}

func TestUploadDuringExtractionKeepsNewDocumentClean(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	tb.handle(documentEvent("111"))
	tb.handle(Event{Type: EventListReply, From: "111", MessageID: "wamid.l", ReplyID: "lang_english"})

	// A second upload lands while the first document is still extracting.
	tb.extractor.onExtract = func() {
		tb.sessions.StoreDocument("111", "media-2", "other.pdf")
	}
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.b", ReplyID: "task_summarize"})

	if got := tb.sessions.Chunks("111"); got != nil {
		t.Fatalf("new document picked up the old document's chunks: %v", got)
	}

	// The next task extracts the new document instead of a stale cache.
	tb.extractor.onExtract = nil
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.b2", ReplyID: "task_exam"})
	if tb.extractor.calls() != 2 {
		t.Fatalf("expected a fresh extraction for the new document, got %d", tb.extractor.calls())
	}
}

func TestDocumentRejectsNonPDF(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	ev := documentEvent("111")
	ev.Document.MimeType = "application/msword"
	tb.handle(ev)

	if !tb.transport.hasText("PDF") {
		t.Fatalf("rejection not sent: %v", tb.transport.texts)
	}
	if len(tb.transport.lists) != 0 {
		t.Fatalf("language list must not be sent for non-PDF")
	}
}

func TestDocumentRateLimit(t *testing.T) {
	transport := &fakeTransport{}
	tb := &testBot{
		transport: transport,
		llm:       &fakeLLM{},
		extractor: &fakeExtractor{chunks: []string{"c"}},
		sessions:  session.NewManager(),
	}
	tb.bot = New(transport, tb.llm, tb.sessions, quota.NewTracker(1000),
		ratelimit.NewLimiter(1, time.Hour), tb.extractor, nil)
	tb.seen("111")

	tb.handle(documentEvent("111"))
	tb.handle(documentEvent("111"))

	if len(transport.lists) != 1 {
		t.Fatalf("expected 1 language list, got %d", len(transport.lists))
	}
	if !transport.hasText("hit the limit") {
		t.Fatalf("rate limit message missing: %v", transport.texts)
	}
}

func TestTaskWithoutDocument(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.b", ReplyID: "task_summarize"})

	if !tb.transport.hasText("don't have an active document") {
		t.Fatalf("missing-document message not sent: %v", tb.transport.texts)
	}
	if len(tb.llm.docCalls) != 0 {
		t.Fatalf("pipeline must not run without a document")
	}
}

func TestQuizFlow(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")
	tb.llm.questions = []llm.Question{
		{Question: "q1", A: "a1", B: "b1", C: "c1", Correct: "A"},
		{Question: "q2", A: "a2", B: "b2", C: "c2", Correct: "B"},
	}

	tb.handle(documentEvent("111"))
	tb.handle(Event{Type: EventListReply, From: "111", MessageID: "wamid.l", ReplyID: "lang_english"})
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.b", ReplyID: "task_quiz"})

	if !tb.transport.hasText("QUIZ TIME") {
		t.Fatalf("quiz intro missing: %v", tb.transport.texts)
	}
	q1, ok := tb.transport.hasButtons("Question 1/2")
	if !ok {
		t.Fatalf("first question not sent")
	}
	if len(q1.buttons) != 3 || q1.buttons[0].ID != "quiz_a" {
		t.Fatalf("unexpected answer buttons: %+v", q1.buttons)
	}

	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.a1", ReplyID: "quiz_a"})
	if !tb.transport.hasText("Correct!") {
		t.Fatalf("correct feedback missing")
	}
	if _, ok := tb.transport.hasButtons("Question 2/2"); !ok {
		t.Fatalf("second question not sent")
	}

	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.a2", ReplyID: "quiz_c"})
	if !tb.transport.hasText("The correct answer was *B*") {
		t.Fatalf("wrong feedback missing: %v", tb.transport.texts)
	}
	if !tb.transport.hasText("1/2 (50%)") {
		t.Fatalf("final score missing: %v", tb.transport.texts)
	}
	if streak, _ := tb.sessions.Streak("111"); streak != 1 {
		t.Fatalf("quiz completion must record activity")
	}

	// A stale tap after completion stays quiet.
	before := len(tb.transport.texts)
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.a3", ReplyID: "quiz_a"})
	if len(tb.transport.texts) != before {
		t.Fatalf("stale tap produced output: %v", tb.transport.texts[before:])
	}
}

func TestFlashcardFlow(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")
	tb.llm.cards = []llm.Flashcard{
		{Front: "front 1", Back: "back 1"},
		{Front: "front 2", Back: "back 2"},
	}

	tb.handle(documentEvent("111"))
	tb.handle(Event{Type: EventListReply, From: "111", MessageID: "wamid.l", ReplyID: "lang_english"})
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.b", ReplyID: "task_flashcard"})

	if !tb.transport.hasText("FLASHCARD MODE") {
		t.Fatalf("flashcard intro missing: %v", tb.transport.texts)
	}
	if _, ok := tb.transport.hasButtons("Card 1/2"); !ok {
		t.Fatalf("first card not sent")
	}

	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.r1", ReplyID: "flash_reveal"})
	if !tb.transport.hasText("back 1") {
		t.Fatalf("first answer missing")
	}
	if _, ok := tb.transport.hasButtons("next one"); !ok {
		t.Fatalf("next-card button missing")
	}

	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.n1", ReplyID: "flash_next"})
	if _, ok := tb.transport.hasButtons("Card 2/2"); !ok {
		t.Fatalf("second card not sent")
	}

	// Revealing the last card closes the deck.
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.r2", ReplyID: "flash_reveal"})
	if !tb.transport.hasText("All flashcards complete") {
		t.Fatalf("completion message missing: %v", tb.transport.texts)
	}
	if tb.sessions.FlashcardsActive("111") {
		t.Fatalf("deck still active after the last reveal")
	}

	// A stray "next" after completion does nothing.
	before := len(tb.transport.buttons)
	tb.handle(Event{Type: EventButtonReply, From: "111", MessageID: "wamid.n2", ReplyID: "flash_next"})
	if len(tb.transport.buttons) != before {
		t.Fatalf("stale next tap sent another card")
	}
}

func TestImageFlowCleansUp(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	tb.handle(Event{Type: EventImage, From: "111", MessageID: "wamid.i", MediaID: "img-1"})

	if len(tb.llm.mediaCalls) != 1 || !strings.Contains(tb.llm.mediaCalls[0], "img-1") {
		t.Fatalf("media analysis calls: %v", tb.llm.mediaCalls)
	}
	if len(tb.extractor.removed) != 1 {
		t.Fatalf("downloaded media not cleaned up")
	}
	if streak, _ := tb.sessions.Streak("111"); streak != 1 {
		t.Fatalf("media analysis must record activity")
	}
}

func TestUnknownEventIsAcknowledgedOnly(t *testing.T) {
	tb := newTestBot(t)
	tb.seen("111")

	tb.handle(Event{Type: EventUnknown, From: "111", MessageID: "wamid.u"})

	if len(tb.transport.reads) != 1 {
		t.Fatalf("unknown event must still be marked read")
	}
	if len(tb.transport.texts) != 0 || len(tb.llm.chatCalls) != 0 {
		t.Fatalf("unknown event must not produce replies")
	}
}
