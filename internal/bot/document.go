package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"studybuddy/internal/llm"
	"studybuddy/internal/whatsapp"
)

func (b *Bot) handleDocument(ev Event) {
	phone := ev.From
	doc := ev.Document

	if !strings.Contains(strings.ToLower(doc.MimeType), "pdf") {
		b.send(phone, "📄 I only process *PDF documents* right now. Please send a PDF file!")
		return
	}

	if !b.limiter.IsAllowed(phone) {
		b.send(phone, "⏳ You've hit the limit (5 docs/hour). Take a break and come back soon! ☕")
		return
	}

	b.sessions.StoreDocument(phone, doc.MediaID, doc.Filename)

	b.sendList(phone,
		fmt.Sprintf("📄 Received *%s*!\n\nFirst, choose the language for the AI response:", doc.Filename),
		"Select Language",
		languageSections("lang_", true))
}

// handleTaskSelection starts the chosen flow for the session's active
// document. Runs on the dispatch path; the heavy work goes to the runner.
func (b *Bot) handleTaskSelection(phone string, task taskKind) {
	mediaID, _ := b.sessions.Document(phone)
	if mediaID == "" {
		b.send(phone, "📄 I don't have an active document. Please upload a PDF first!")
		return
	}

	b.send(phone, processingNotice())

	switch task {
	case taskQuiz:
		b.tasks.Go("quiz_start", func() { b.startQuiz(phone) })
	case taskFlashcards:
		b.tasks.Go("flashcards_start", func() { b.startFlashcards(phone) })
	case taskSummarize, taskExam, taskResume:
		llmTask := map[taskKind]llm.Task{
			taskSummarize: llm.TaskSummarize,
			taskExam:      llm.TaskExam,
			taskResume:    llm.TaskResume,
		}[task]
		b.tasks.Go("document_task", func() { b.processDocumentTask(phone, llmTask) })
	}

	b.tasks.Go("more_options", func() { b.sendMoreOptions(phone) })
}

// ensureChunks returns the session's cached chunks, running
// download-validate-extract only when the active document has none yet.
// Re-running a task on the same document is a cache hit.
func (b *Bot) ensureChunks(ctx context.Context, phone string) ([]string, error) {
	if chunks := b.sessions.Chunks(phone); chunks != nil {
		return chunks, nil
	}

	mediaID, _ := b.sessions.Document(phone)
	if mediaID == "" {
		return nil, fmt.Errorf("no active document")
	}

	filePath, err := b.transport.DownloadMedia(ctx, mediaID, "pdf")
	if err != nil {
		return nil, fmt.Errorf("couldn't download the document: %w", err)
	}
	defer b.docs.Remove(filePath)

	if ok, reason := b.docs.Validate(filePath); !ok {
		return nil, fmt.Errorf("%s", reason)
	}

	chunks, err := b.docs.ExtractChunks(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("couldn't extract text: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("couldn't extract text from the document")
	}

	// The in-flight task still runs on what it downloaded; the cache only
	// keeps the chunks if this is still the active document.
	b.sessions.StoreChunks(phone, mediaID, chunks)
	return chunks, nil
}

// processDocumentTask runs a one-shot document task end to end.
func (b *Bot) processDocumentTask(phone string, task llm.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	chunks, err := b.ensureChunks(ctx, phone)
	if err != nil {
		log.Printf("[%s] document pipeline error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ %v", err))
		return
	}

	language := b.sessions.Language(phone)
	result, err := b.llm.ProcessDocument(ctx, chunks, task, language)
	if err != nil {
		log.Printf("[%s] document pipeline error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ Error: %v", err))
		return
	}

	b.sendNow(ctx, phone, result)
	b.sessions.RecordActivity(phone)

	_, filename := b.sessions.Document(phone)
	b.recordInteraction(phone, filename, "success_"+string(task))
}

// sendMoreOptions offers follow-up tasks shortly after the primary one kicks
// off, while the document is still active.
func (b *Bot) sendMoreOptions(phone string) {
	time.Sleep(moreOptionsDelay)

	mediaID, _ := b.sessions.Document(phone)
	if mediaID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()
	b.sendButtonsNow(ctx, phone, "✨ Want to do more with this document?", moreOptionsButtons())
}
