// Package docs models locally checked-out documentation pages: flattened
// page text plus section metadata, which is what selection context is read
// against.
package docs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Section is the part of a page governed by one heading.
type Section struct {
	Title  string
	Level  int // heading level, 1-6
	Anchor string
	Class  string
	Start  int // rune offset into Document.Text
	End    int
}

// Tag returns the HTML-ish tag name of the governing heading.
func (s Section) Tag() string {
	return fmt.Sprintf("h%d", s.Level)
}

// Document is one parsed doc page.
type Document struct {
	Path     string // file path on disk
	URL      string // site-relative page URL, e.g. /docs/ch1
	Title    string // first heading, or the file name
	Text     string // flattened plain text, the coordinate space for offsets
	Sections []Section
}

var markdown = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
		parser.WithAttribute(),
	),
)

// Parse flattens markdown source into plain text and records section
// boundaries. Offsets are rune offsets into the flattened text; flattening
// across non-text nodes is best-effort and offsets may be imprecise there.
func Parse(url string, source []byte) *Document {
	root := markdown.Parser().Parse(text.NewReader(source))

	doc := &Document{URL: url}
	var sb strings.Builder
	runes := 0

	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		blockText := nodeText(node, source)

		if heading, ok := node.(*ast.Heading); ok {
			if len(doc.Sections) > 0 {
				doc.Sections[len(doc.Sections)-1].End = runes
			}
			doc.Sections = append(doc.Sections, Section{
				Title:  blockText,
				Level:  heading.Level,
				Anchor: attributeString(heading, "id"),
				Class:  attributeString(heading, "class"),
				Start:  runes,
			})
			if doc.Title == "" {
				doc.Title = blockText
			}
		}

		sb.WriteString(blockText)
		sb.WriteString("\n\n")
		runes += utf8.RuneCountInString(blockText) + 2
	}

	doc.Text = sb.String()
	if len(doc.Sections) > 0 {
		doc.Sections[len(doc.Sections)-1].End = runes
	}
	return doc
}

// Load reads and parses the page at path. The page URL is derived from the
// path relative to docsRoot, without the markdown extension.
func Load(docsRoot, path string) (*Document, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read doc page: %w", err)
	}

	doc := Parse(pageURL(docsRoot, path), source)
	doc.Path = path
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// ListPages returns the paths of all markdown pages under docsRoot, sorted.
func ListPages(docsRoot string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(docsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".mdx":
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan docs directory: %w", err)
	}
	sort.Strings(pages)
	return pages, nil
}

// SectionAt returns the section governing the given rune offset, or nil
// when the offset precedes the first heading.
func (d *Document) SectionAt(offset int) *Section {
	var found *Section
	for i := range d.Sections {
		if d.Sections[i].Start <= offset {
			found = &d.Sections[i]
		} else {
			break
		}
	}
	return found
}

func pageURL(docsRoot, path string) string {
	rel, err := filepath.Rel(docsRoot, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return "/docs/" + filepath.ToSlash(rel)
}

func attributeString(node ast.Node, name string) string {
	value, ok := node.AttributeString(name)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

// nodeText collects the visible text of a block node. Code blocks keep
// their literal lines; other structure collapses to the text it contains.
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			writeLines(&sb, t.Lines(), source)
		case *ast.CodeBlock:
			writeLines(&sb, t.Lines(), source)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimRight(sb.String(), "\n")
}

func writeLines(sb *strings.Builder, lines *text.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
}
