package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

const (
	// MinExtractedTextLength is the minimum text length required for successful extraction
	MinExtractedTextLength = 50
	// BinarySampleSize is the number of bytes to sample for binary detection
	BinarySampleSize = 1000
	// BinaryThreshold is the proportion of non-printable characters that indicates binary data
	BinaryThreshold = 0.3
)

// Document formats recognised by the extractor.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatDOC  = "doc"
	FormatText = "txt"
)

// ErrUnsupportedFormat is returned for files the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

var (
	xmlTagPattern      = regexp.MustCompile(`<[^>]+>`)
	blankLinesPattern  = regexp.MustCompile(`\n{3,}`)
	docxParagraphClose = strings.NewReplacer("</w:p>", "\n", "<w:tab/>", "\t", "<w:br/>", "\n")
)

// Extractor converts resume files into plain text.
type Extractor struct {
	// PDFToText is the fallback binary for PDFs unipdf cannot read. Empty disables it.
	PDFToText string
	logger    *zap.Logger
}

// NewExtractor creates an extractor with the pdftotext fallback enabled.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{PDFToText: "pdftotext", logger: logger}
}

// Extract returns the text of the file at path. Content sniffing takes
// precedence over the extension, so a DOCX saved as resume_1.pdf is still
// read as DOCX.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	header, err := readHeader(path, 8)
	if err != nil {
		return "", err
	}

	var text string
	switch format := DetectFormat(header, filepath.Ext(path)); format {
	case FormatPDF:
		text, err = e.extractPDF(ctx, path)
	case FormatDOCX:
		text, err = extractDOCX(path)
	case FormatDOC:
		text, err = extractDOC(ctx, path)
	case FormatText:
		text, err = extractPlain(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return "", err
	}

	text = SanitizeUTF8(strings.TrimSpace(text))
	if len(text) < MinExtractedTextLength {
		return "", fmt.Errorf("extracted text is too short (likely failed extraction) from: %s", filepath.Base(path))
	}
	return text, nil
}

// DetectFormat picks a document format from magic bytes, falling back to the extension.
func DetectFormat(header []byte, ext string) string {
	switch {
	case bytes.HasPrefix(header, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(header, []byte("PK\x03\x04")):
		return FormatDOCX
	case bytes.HasPrefix(header, []byte("\xd0\xcf\x11\xe0")):
		return FormatDOC
	}

	switch strings.ToLower(ext) {
	case ".txt", ".md":
		return FormatText
	case ".pdf":
		// Drive exports of native documents are plain text
		if len(header) > 0 && !IsBinaryData(string(header)) {
			return FormatText
		}
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".doc":
		return FormatDOC
	}
	return ""
}

// extractPDF reads the PDF page by page with unipdf and falls back to pdftotext.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	text, err := extractPDFPages(path)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	e.logger.Debug("unipdf extraction failed, trying pdftotext", zap.String("file", filepath.Base(path)), zap.Error(err))
	if e.PDFToText == "" {
		if err == nil {
			err = errors.New("no text found in PDF")
		}
		return "", fmt.Errorf("PDF extraction failed: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.PDFToText, "-layout", path, "-")
	output, cmdErr := cmd.Output()
	if cmdErr != nil {
		return "", fmt.Errorf("PDF extraction requires 'pdftotext' (install poppler-utils): %w", cmdErr)
	}
	return string(output), nil
}

func extractPDFPages(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if numPages == 0 {
		return "", errors.New("PDF has no pages")
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX: %w", err)
	}
	defer r.Close()

	return StripXML(r.Editable().GetContent()), nil
}

// extractDOC shells out to antiword for legacy Word files
func extractDOC(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "antiword", path)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("DOC extraction requires 'antiword': %w", err)
	}
	return string(output), nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if IsBinaryData(string(data)) {
		return "", fmt.Errorf("%w: binary content in text file", ErrUnsupportedFormat)
	}
	return string(data), nil
}

// StripXML turns WordprocessingML into plain text.
func StripXML(content string) string {
	content = docxParagraphClose.Replace(content)
	content = xmlTagPattern.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	return blankLinesPattern.ReplaceAllString(content, "\n\n")
}

// SanitizeUTF8 drops invalid UTF-8 sequences and NUL bytes.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, 0) {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}

func readHeader(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return buf[:read], nil
}

// IsBinaryData checks if content appears to be binary (PDF/ZIP markers)
func IsBinaryData(content string) bool {
	if len(content) == 0 {
		return false
	}

	if strings.HasPrefix(content, "%PDF-") {
		return true
	}

	if len(content) >= 2 && content[:2] == "PK" {
		return true
	}

	sampleSize := min(BinarySampleSize, len(content))
	nonPrintable := 0
	for i := 0; i < sampleSize; i++ {
		ch := content[i]
		if ch < 32 && ch != '\n' && ch != '\r' && ch != '\t' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > BinaryThreshold
}
