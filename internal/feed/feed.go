// Package feed supplies the main cycle with article text to extract
// facts from. The article source is an injected interface so the
// scheduler and its tests never depend on real network access, the
// same pattern internal/nlp uses for the NLP collaborator.
package feed

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Article is the {source_url, text} tuple the main cycle's extraction
// step consumes.
type Article struct {
	URL  string
	Text string
}

// ArticleFetcher returns up to limit articles for topic. Axiom does
// not implement RSS/feed-format parsing (out of scope, see
// DESIGN.md); a real deployment supplies topic -> URL list mapping out
// of band and this interface only fetches and strips markup.
type ArticleFetcher interface {
	FetchArticles(ctx context.Context, topic string, limit int) ([]Article, error)
}

// Fetcher is the thin HTTP-based ArticleFetcher: given a topic, it GETs
// each configured URL for that topic and strips HTML tags down to
// plain text for the extractor to sentence-split.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	sources    map[string][]string
	log        *logrus.Entry
}

// New builds a Fetcher. sources maps a topic name to the URLs polled
// for it; an operator supplies this out of band since RSS discovery is
// out of scope.
func New(sources map[string][]string, timeout time.Duration, log *logrus.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{},
		timeout:    timeout,
		sources:    sources,
		log:        log.WithField("component", "feed"),
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// FetchArticles fetches up to limit URLs configured for topic and
// returns their stripped text.
func (f *Fetcher) FetchArticles(ctx context.Context, topic string, limit int) ([]Article, error) {
	urls := f.sources[topic]
	if len(urls) > limit {
		urls = urls[:limit]
	}

	var out []Article
	for _, u := range urls {
		text, err := f.fetchOne(ctx, u)
		if err != nil {
			f.log.WithError(err).WithField("url", u).Warn("article fetch failed")
			continue
		}
		out = append(out, Article{URL: u, Text: text})
	}
	return out, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	stripped := tagPattern.ReplaceAllString(string(body), " ")
	return strings.Join(strings.Fields(stripped), " "), nil
}
