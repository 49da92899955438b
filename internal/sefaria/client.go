package sefaria

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Hit is one search result from the library's search endpoint.
type Hit struct {
	Ref     string
	Snippet string
	Score   float64
}

// TextResult is the fetched text of a single citation. Both text fields are
// HTML-stripped and truncated before leaving this package.
type TextResult struct {
	Ref     string
	Title   string
	Hebrew  string
	English string
}

// maxTextLen bounds each text field handed to the rest of the system.
const maxTextLen = 1500

// Client talks to the Sefaria REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

type searchRequest struct {
	Query   string   `json:"query"`
	Type    string   `json:"type"`
	Filters []string `json:"filters,omitempty"`
	Size    int      `json:"size"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source struct {
				Ref   string `json:"ref"`
				Exact string `json:"exact"`
			} `json:"_source"`
			Highlight struct {
				Exact []string `json:"exact"`
			} `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full-text query scoped to the given category filters and
// returns at most maxHits results. A non-2xx response is an error; the
// caller decides whether to absorb it.
func (c *Client) Search(ctx context.Context, query string, filters []string, maxHits int) ([]Hit, error) {
	body, err := json.Marshal(searchRequest{
		Query:   query,
		Type:    "text",
		Filters: filters,
		Size:    maxHits,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/search-wrapper", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search %q: status %d", query, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		if h.Source.Ref == "" {
			continue
		}
		snippet := ""
		if len(h.Highlight.Exact) > 0 {
			snippet = stripHTML(h.Highlight.Exact[0])
		}
		hits = append(hits, Hit{Ref: h.Source.Ref, Snippet: snippet, Score: h.Score})
		if len(hits) >= maxHits {
			break
		}
	}
	return hits, nil
}

type textResponse struct {
	Ref    string          `json:"ref"`
	Book   string          `json:"book"`
	Hebrew json.RawMessage `json:"he"`
	Text   json.RawMessage `json:"text"`
}

// FetchText retrieves the primary (Hebrew) and translated (English) text of
// one citation. Returns (nil, nil) when the library does not know the ref.
func (c *Client) FetchText(ctx context.Context, ref string) (*TextResult, error) {
	u := fmt.Sprintf("%s/api/texts/%s?context=0&commentary=0", c.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build text request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %q: status %d", ref, resp.StatusCode)
	}

	var tr textResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode text response: %w", err)
	}

	out := &TextResult{
		Ref:     tr.Ref,
		Title:   tr.Book,
		Hebrew:  cleanText(flattenSegments(tr.Hebrew)),
		English: cleanText(flattenSegments(tr.Text)),
	}
	if out.Ref == "" {
		out.Ref = ref
	}
	if out.Hebrew == "" && out.English == "" {
		return nil, nil
	}
	return out, nil
}

// flattenSegments joins Sefaria text payloads, which arrive as a bare string
// or as arbitrarily nested string arrays depending on the ref granularity.
func flattenSegments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return ""
	}
	parts := make([]string, 0, len(arr))
	for _, el := range arr {
		if p := flattenSegments(el); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}

func cleanText(s string) string {
	s = stripHTML(s)
	r := []rune(s)
	if len(r) > maxTextLen {
		return string(r[:maxTextLen])
	}
	return s
}
