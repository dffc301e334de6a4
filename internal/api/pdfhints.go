package api

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	rpdf "rsc.io/pdf"
)

// Date shapes that show up in Etimad brochure PDFs. Both western and
// slash-ordered forms appear; Hijri dates are left alone.
var pdfDateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}(\s+\d{2}:\d{2})?\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/20\d{2}(\s+\d{2}:\d{2})?\b`),
}

// pdfDeadlineHints pulls candidate date strings out of a PDF so the UI
// can suggest a deadline. Best effort only: any parse failure yields nil.
func pdfDeadlineHints(content []byte) []string {
	text, err := extractPDFText(content)
	if err != nil {
		return nil
	}

	var hints []string
	seen := make(map[string]bool)
	for _, expr := range pdfDateRegexes {
		for _, match := range expr.FindAllString(text, -1) {
			token := strings.Join(strings.Fields(match), " ")
			if !seen[token] {
				hints = append(hints, token)
				seen[token] = true
			}
		}
	}
	return hints
}

func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}
