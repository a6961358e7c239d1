package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// DocxExtractor reads the body text of word-processing documents.
type DocxExtractor struct{}

// NewDocxExtractor creates a .docx extractor.
func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

// Extract returns the paragraphs of word/document.xml separated by blank lines.
func (e *DocxExtractor) Extract(_ context.Context, path string) (Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to open docx: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()

	var body string
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		body, err = readPart(f, "\n\n")
		if err != nil {
			return Document{}, err
		}
		break
	}

	return Document{Title: coreTitle(&zr.Reader), Text: body}, nil
}

// PptxExtractor reads the text of presentation slides in slide order.
type PptxExtractor struct{}

// NewPptxExtractor creates a .pptx extractor.
func NewPptxExtractor() *PptxExtractor {
	return &PptxExtractor{}
}

// Extract returns the text of every slide, one block per slide.
func (e *PptxExtractor) Extract(_ context.Context, path string) (Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to open pptx: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()

	type slide struct {
		n    int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		name, ok := strings.CutPrefix(f.Name, "ppt/slides/slide")
		if !ok || !strings.HasSuffix(name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{n: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	blocks := make([]string, 0, len(slides))
	for _, s := range slides {
		text, err := readPart(s.file, "\n")
		if err != nil {
			return Document{}, err
		}
		if text != "" {
			blocks = append(blocks, text)
		}
	}

	return Document{Title: coreTitle(&zr.Reader), Text: strings.Join(blocks, "\n\n")}, nil
}

func readPart(f *zip.File, paraSep string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()
	return ooxmlText(rc, paraSep)
}

// ooxmlText collects the text runs (<w:t>, <a:t>) of an Office Open XML
// part. Paragraph ends (<w:p>, <a:p>) become paraSep.
func ooxmlText(r io.Reader, paraSep string) (string, error) {
	dec := xml.NewDecoder(r)
	var paras []string
	var cur strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(cur.String()); p != "" {
					paras = append(paras, p)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if p := strings.TrimSpace(cur.String()); p != "" {
		paras = append(paras, p)
	}

	return strings.Join(paras, paraSep), nil
}

type coreXML struct {
	Title string `xml:"title"`
}

// coreTitle reads the document title from docProps/core.xml, if present.
func coreTitle(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		defer func() {
			_ = rc.Close()
		}()
		var core coreXML
		if err := xml.NewDecoder(rc).Decode(&core); err != nil {
			return ""
		}
		return strings.TrimSpace(core.Title)
	}
	return ""
}
