// Package search finds downloadable MIDI files on freemidi style sites.
package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"git.lost.host/meutraa/keys/internal/fetch"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// Result is a song that can be downloaded.
type Result struct {
	Title     string `json:"title"`
	SourceURL string `json:"url"`
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Client scrapes the search listing, then each song page for its MIDI
// link. A song page that fails is skipped.
type Client struct {
	Base    string
	Fetcher fetch.Fetcher
	Log     logrus.FieldLogger
}

func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	results := []Result{}
	query = strings.TrimSpace(query)
	if query == "" {
		return results, nil
	}

	base, err := url.Parse(strings.TrimSuffix(c.Base, "/"))
	if nil != err {
		return results, fmt.Errorf("invalid search url %q: %w", c.Base, err)
	}
	searchURL := base.JoinPath("search")
	searchURL.RawQuery = url.Values{"query": {query}}.Encode()

	log := c.Log.WithField("query", query)
	log.WithField("url", searchURL.String()).Debug("searching")

	doc, err := c.document(ctx, searchURL.String())
	if nil != err {
		return results, fmt.Errorf("search for %q failed: %w", query, err)
	}

	pages := listings(doc, base)
	log.WithField("pages", len(pages)).Debug("found song pages")

	for _, page := range pages {
		if err := ctx.Err(); nil != err {
			return results, err
		}
		doc, err := c.document(ctx, page.SourceURL)
		if nil != err {
			log.WithError(err).WithField("page", page.SourceURL).Warn("unable to fetch song page")
			continue
		}
		href, text, ok := downloadLink(doc)
		if !ok {
			log.WithField("page", page.SourceURL).Debug("no midi link on song page")
			continue
		}
		link, err := base.Parse(href)
		if nil != err {
			continue
		}
		title := page.Title
		if text != "" && !strings.Contains(strings.ToLower(text), "download") {
			title = text
		}
		results = append(results, Result{Title: title, SourceURL: link.String()})
	}

	log.WithField("results", len(results)).Info("search finished")
	return results, nil
}

func (c *Client) document(ctx context.Context, u string) (*html.Node, error) {
	data, err := c.Fetcher.Fetch(ctx, u)
	if nil != err {
		return nil, err
	}
	r, err := charset.NewReader(bytes.NewReader(data), "")
	if nil != err {
		return nil, fmt.Errorf("unable to decode %v: %w", u, err)
	}
	return html.Parse(r)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// find returns the first node under n, depth first, that matches.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; nil != c; c = c.NextSibling {
		if f := find(c, match); nil != f {
			return f
		}
	}
	return nil
}

func each(n *html.Node, match func(*html.Node) bool, fn func(*html.Node)) {
	if match(n) {
		fn(n)
		return
	}
	for c := n.FirstChild; nil != c; c = c.NextSibling {
		each(c, match, fn)
	}
}

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func isLink(n *html.Node) bool {
	if !isElement("a")(n) {
		return false
	}
	href, ok := attr(n, "href")
	return ok && href != ""
}

// text is the normalized, whitespace collapsed text content of n.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; nil != c; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	fields := strings.FieldsFunc(norm.NFC.String(b.String()), unicode.IsSpace)
	return strings.Join(fields, " ")
}

// listings returns the song pages linked from div.song-listing.
func listings(doc *html.Node, base *url.URL) []Result {
	pages := []Result{}
	each(doc, func(n *html.Node) bool {
		return isElement("div")(n) && hasClass(n, "song-listing")
	}, func(div *html.Node) {
		a := find(div, isLink)
		if nil == a {
			return
		}
		href, _ := attr(a, "href")
		u, err := base.Parse(href)
		if nil != err {
			return
		}
		pages = append(pages, Result{Title: text(a), SourceURL: u.String()})
	})
	return pages
}

// downloadLink prefers a#downloadmidi, then any link to a .mid file.
func downloadLink(doc *html.Node) (string, string, bool) {
	a := find(doc, func(n *html.Node) bool {
		id, _ := attr(n, "id")
		return isLink(n) && id == "downloadmidi"
	})
	if nil == a {
		a = find(doc, func(n *html.Node) bool {
			href, _ := attr(n, "href")
			return isLink(n) && strings.HasSuffix(strings.ToLower(href), ".mid")
		})
	}
	if nil == a {
		return "", "", false
	}
	href, _ := attr(a, "href")
	return href, text(a), true
}
