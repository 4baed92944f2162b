package parse

import (
	"bytes"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

// SnapshotMarkdown renders a cached page snapshot as Markdown for the review
// view. Script and style elements are stripped first; the converter chokes on
// inline script bodies and reviewers never want them anyway.
func SnapshotMarkdown(snap *models.Snapshot) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return "", fmt.Errorf("%w: snapshot '%s': %v", utils.ErrParsing, snap.Key, err)
	}

	doc.Find("script, style, noscript").Remove()

	body := doc.Find("body").First()
	var html string
	if body.Length() > 0 {
		html, err = body.Html()
	} else {
		html, err = doc.Html()
	}
	if err != nil {
		return "", fmt.Errorf("%w: extracting HTML from snapshot '%s': %v", utils.ErrParsing, snap.Key, err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, convertErr := converter.ConvertString(html)
	if convertErr != nil {
		return "", fmt.Errorf("%w: markdown conversion for snapshot '%s': %v", utils.ErrParsing, snap.Key, convertErr)
	}
	return markdown, nil
}
