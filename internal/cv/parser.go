package cv

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

// DocumentParser extracts plain text from uploaded resume files and keeps
// a copy of the original under uploadsDir. It handles the document
// formats themselves; OCR for scanned images is an external concern.
type DocumentParser struct {
	uploadsDir string
}

// ExtractedDocument is the raw result of text extraction, before any
// structured parsing or deduplication.
type ExtractedDocument struct {
	Filename string
	FileType string
	FileSize int64
	FileURI  string
	FullText string
}

func NewDocumentParser(uploadsDir string) *DocumentParser {
	return &DocumentParser{uploadsDir: uploadsDir}
}

// ExtractFile saves the upload and extracts its text. PDF/DOCX and
// friends go through docconv, .txt is read directly.
func (p *DocumentParser) ExtractFile(filename string, reader io.Reader) (*ExtractedDocument, error) {
	if err := os.MkdirAll(p.uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}

	filePath := filepath.Join(p.uploadsDir, filepath.Base(filename))
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	fileType := strings.ToLower(filepath.Ext(filename))
	var text string

	switch fileType {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		res, err := docconv.ConvertPath(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		text = res.Body
	case ".txt":
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read text file: %w", err)
		}
		text = string(content)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}

	if NormalizeText(text) == "" {
		return nil, ErrEmptyText
	}

	return &ExtractedDocument{
		Filename: filename,
		FileType: fileType,
		FileSize: size,
		FileURI:  filePath,
		FullText: text,
	}, nil
}
