package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var challengeTitles = []string{
	"just a moment",
	"attention required",
	"checking your browser",
	"please wait while we verify",
}

var challengeMarkers = []string{
	"cf-browser-verification",
	"cf-challenge",
	"cf_chl_opt",
	`id="challenge-form"`,
	`id="challenge-running"`,
}

// IsChallenge reports whether a page is an anti-bot interstitial rather than
// site content.
func IsChallenge(title, html string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	for _, marker := range challengeTitles {
		if strings.Contains(t, marker) {
			return true
		}
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// PageTitle returns the trimmed <title> of an HTML document, or "" when the
// document cannot be parsed.
func PageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return documentTitle(doc)
}

func documentTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}
