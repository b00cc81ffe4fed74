package news

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/selivandex/market-pulse/pkg/models"
)

// fingerprintBodyPrefix bounds how much body text feeds the content
// fingerprint, so minor trailing edits do not defeat dedup
const fingerprintBodyPrefix = 512

// dedupKey identifies one logical article across sources. Two articles
// with equal keys are the same article.
type dedupKey string

// keyFor derives the deduplication key: the normalized URL
// (scheme/host/path only) when the URL parses, otherwise a content
// fingerprint of title and body.
func keyFor(article *models.RawArticle) dedupKey {
	if normalized := normalizeURL(article.URL); normalized != "" {
		return dedupKey("url:" + normalized)
	}
	return dedupKey("fp:" + fingerprint(article))
}

// normalizeURL strips query, fragment and trailing slash, lowercasing
// scheme and host. Returns "" for unparsable or schemeless URLs.
func normalizeURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host) + path
}

// fingerprint hashes the lower-cased title plus a body prefix
func fingerprint(article *models.RawArticle) string {
	body := article.Body
	if len(body) > fingerprintBodyPrefix {
		body = body[:fingerprintBodyPrefix]
	}

	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(article.Title)) + "\n" + body))
	return hex.EncodeToString(h[:])
}

// Deduplicate keeps one representative per logical article: articles
// with a non-empty body win over body-less ones, then the most
// recently fetched. The surviving article carries the latest
// PublishedAt seen for its key. Input order does not affect the result.
func Deduplicate(articles []models.RawArticle) []models.RawArticle {
	groups := make(map[dedupKey]models.RawArticle, len(articles))
	order := make([]dedupKey, 0, len(articles))

	for _, article := range articles {
		key := keyFor(&article)
		existing, seen := groups[key]
		if !seen {
			groups[key] = article
			order = append(order, key)
			continue
		}

		winner := pickRepresentative(existing, article)
		// Later publication time wins when merging
		if article.PublishedAt.After(winner.PublishedAt) {
			winner.PublishedAt = article.PublishedAt
		}
		if existing.PublishedAt.After(winner.PublishedAt) {
			winner.PublishedAt = existing.PublishedAt
		}
		groups[key] = winner
	}

	result := make([]models.RawArticle, 0, len(groups))
	for _, key := range order {
		result = append(result, groups[key])
	}
	return result
}

// pickRepresentative prefers the article with a non-empty body, then
// the later FetchedAt
func pickRepresentative(a, b models.RawArticle) models.RawArticle {
	aHasBody := strings.TrimSpace(a.Body) != ""
	bHasBody := strings.TrimSpace(b.Body) != ""

	if aHasBody != bHasBody {
		if aHasBody {
			return a
		}
		return b
	}

	if b.FetchedAt.After(a.FetchedAt) {
		return b
	}
	return a
}

// sortArticles orders by PublishedAt descending, ties broken by source
// priority then URL for a deterministic result
func sortArticles(articles []models.RawArticle, priority []string) {
	rank := make(map[string]int, len(priority))
	for i, sourceID := range priority {
		rank[sourceID] = i
	}
	rankOf := func(sourceID string) int {
		if r, ok := rank[sourceID]; ok {
			return r
		}
		return len(priority)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		}
		if rankOf(articles[i].SourceID) != rankOf(articles[j].SourceID) {
			return rankOf(articles[i].SourceID) < rankOf(articles[j].SourceID)
		}
		return articles[i].URL < articles[j].URL
	})
}
