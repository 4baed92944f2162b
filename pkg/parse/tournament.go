package parse

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

// Markers venues embed in listing pages. An empty slot and a hidden event are
// both valid parse outcomes, not failures: the parser reports them as
// placeholder statuses and leaves the tournament fields zero.
const (
	notFoundMarkerClass     = "tourney-not-found"
	notPublishedMarkerClass = "tourney-not-published"
	doNotScrapeMetaName     = "tourneytrack-policy"
	doNotScrapeMetaValue    = "do-not-scrape"
)

// Layouts venues have been observed to use for start times, tried in order.
var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"Jan 2, 2006 3:04 PM",
}

// Snapshot parses a cached page snapshot into a ParsedPayload.
// The returned payload always carries the snapshot key so downstream
// consumers can tell cache-derived payloads from live-fetch ones.
func Snapshot(snap *models.Snapshot) (*models.ParsedPayload, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot '%s': %v", utils.ErrParsing, snap.Key, err)
	}
	return Document(doc, snap.Key)
}

// Document extracts tournament data from a parsed page. snapshotKey may be
// empty for live-fetch content.
func Document(doc *goquery.Document, snapshotKey string) (*models.ParsedPayload, error) {
	payload := &models.ParsedPayload{SnapshotKey: snapshotKey}

	payload.DoNotScrape = hasDoNotScrapeMeta(doc)

	// Placeholder markers win over any tournament fields the page carries.
	switch {
	case doc.Find("."+notFoundMarkerClass).Length() > 0:
		payload.GameStatus = models.GameStatusNotFound
		return payload, nil
	case doc.Find("."+notPublishedMarkerClass).Length() > 0:
		payload.GameStatus = models.GameStatusNotPublished
		return payload, nil
	}

	root := doc.Find(".tourney-detail").First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: no tournament detail section in document", utils.ErrParsing)
	}

	payload.Name = strings.TrimSpace(root.Find(".tourney-name").First().Text())
	if payload.Name == "" {
		payload.Name = strings.TrimSpace(doc.Find("title").First().Text())
	}
	payload.GameType = strings.TrimSpace(root.Find(".tourney-game-type").First().Text())

	status := models.GameStatus(strings.ToUpper(strings.TrimSpace(root.Find(".tourney-status").First().Text())))
	if status.IsValid() {
		payload.GameStatus = status
	} else {
		payload.GameStatus = models.GameStatusScheduled
	}

	payload.BuyInCents = parseMoneyCents(root.Find(".tourney-buy-in").First().Text())
	payload.PrizePoolCents = parseMoneyCents(root.Find(".tourney-prize-pool").First().Text())
	payload.Entrants = parseInt(root.Find(".tourney-entrants").First().Text())
	payload.StartTime = parseStartTime(root)

	return payload, nil
}

func hasDoNotScrapeMeta(doc *goquery.Document) bool {
	found := false
	doc.Find("meta[name='" + doNotScrapeMetaName + "']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if content, ok := s.Attr("content"); ok && strings.EqualFold(strings.TrimSpace(content), doNotScrapeMetaValue) {
			found = true
			return false
		}
		return true
	})
	return found
}

func parseStartTime(root *goquery.Selection) time.Time {
	node := root.Find(".tourney-start-time").First()
	raw := strings.TrimSpace(node.AttrOr("datetime", ""))
	if raw == "" {
		raw = strings.TrimSpace(node.Text())
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseMoneyCents turns a display amount like "$1,500" or "2500.50" into
// cents. Unparseable input yields zero; listing pages routinely omit amounts.
func parseMoneyCents(raw string) int64 {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int64(amount*100 + 0.5)
}

func parseInt(raw string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}
