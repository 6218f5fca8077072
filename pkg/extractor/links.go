package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProductLinks lists the product URLs on a category page in order of first
// appearance. Links are resolved against pageURL, fragments are dropped,
// and only links on the same host are kept. When selector matches nothing,
// links nested under the category path are used instead.
func ProductLinks(html, pageURL, selector string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid category URL %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	links := collect(doc.Find(selector), base, nil)
	if len(links) == 0 {
		prefix := strings.TrimSuffix(base.Path, "/") + "/"
		links = collect(doc.Find("a[href]"), base, func(u *url.URL) bool {
			return prefix != "/" && strings.HasPrefix(u.Path, prefix) && len(u.Path) > len(prefix)
		})
	}
	return links, nil
}

func collect(sel *goquery.Selection, base *url.URL, keep func(*url.URL) bool) []string {
	seen := make(map[string]struct{})
	var links []string
	sel.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		u.Fragment = ""
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		if !strings.EqualFold(u.Host, base.Host) {
			return
		}
		if keep != nil && !keep(u) {
			return
		}
		if strings.TrimSuffix(u.String(), "/") == strings.TrimSuffix(base.String(), "/") {
			return
		}
		key := u.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, key)
	})
	return links
}
