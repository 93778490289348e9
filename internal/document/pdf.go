// Package document extracts text from uploaded PDFs and slices it into
// word-count chunks for the generative pipeline.
package document

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

const defaultChunkWords = 500

// Processor validates and extracts PDFs within configured ceilings.
type Processor struct {
	maxBytes   int64
	maxPages   int
	chunkWords int
}

func NewProcessor(maxFileSizeMB, maxPages int) *Processor {
	return &Processor{
		maxBytes:   int64(maxFileSizeMB) * 1024 * 1024,
		maxPages:   maxPages,
		chunkWords: defaultChunkWords,
	}
}

// Validate checks that the file exists, fits the size ceiling and parses as a
// PDF within the page ceiling. The returned reason is safe to show the user.
func (p *Processor) Validate(filePath string) (bool, string) {
	info, err := os.Stat(filePath)
	if err != nil {
		return false, "File not found."
	}
	if info.Size() > p.maxBytes {
		return false, fmt.Sprintf("File exceeds the %dMB limit.", p.maxBytes/(1024*1024))
	}

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return false, "File is not a valid PDF or is corrupted."
	}
	defer f.Close()

	if reader.NumPage() > p.maxPages {
		return false, fmt.Sprintf("PDF exceeds maximum allowed pages (%d).", p.maxPages)
	}
	return true, "Valid PDF"
}

// ExtractChunks pulls the plain text of every page, normalizes whitespace and
// splits the result into ~chunkWords-word chunks, in order and without
// overlap. Extraction is deterministic for a given file.
func (p *Processor) ExtractChunks(ctx context.Context, filePath string) ([]string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("page %d extraction failed: %v", pageNum, err)
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}

	combined := strings.Join(strings.Fields(strings.Join(pages, " ")), " ")
	if combined == "" {
		return nil, nil
	}
	return chunkWords(combined, p.chunkWords), nil
}

// Remove deletes a downloaded file once processing is done; documents are
// never retained.
func (p *Processor) Remove(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to delete %s: %v", filePath, err)
	}
}

func chunkWords(text string, size int) []string {
	words := strings.Split(text, " ")
	var chunks []string
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
