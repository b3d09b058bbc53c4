package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Topic names arrive flat from the question source as "Entertainment: Film",
// "Science: Computers" and so on. The catalog folds them into a two-level
// taxonomy: a topic either maps straight to a category id, or to a set of
// named subtopics each with its own id.

type Topic struct {
	ID        int            // category id when the topic has no subtopics
	Subtopics map[string]int // subtopic name -> category id
}

type Catalog struct {
	topics map[string]Topic
	names  []string
}

// Topics returns all topic names in stable (sorted) order.
func (c *Catalog) Topics() []string {
	return c.names
}

// HasSubtopics reports whether a topic resolves through a subtopic.
func (c *Catalog) HasSubtopics(topic string) bool {
	t, ok := c.topics[topic]
	return ok && len(t.Subtopics) > 0
}

// TopicID returns the direct category id of a topic without subtopics.
func (c *Catalog) TopicID(topic string) (int, bool) {
	t, ok := c.topics[topic]
	if !ok || len(t.Subtopics) > 0 {
		return 0, false
	}
	return t.ID, true
}

// SubtopicIDs returns the category ids of a topic's subtopics in stable
// (sorted by name) order.
func (c *Catalog) SubtopicIDs(topic string) []int {
	t, ok := c.topics[topic]
	if !ok || len(t.Subtopics) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.Subtopics))
	for name := range t.Subtopics {
		names = append(names, name)
	}
	sort.Strings(names)
	ids := make([]int, len(names))
	for i, name := range names {
		ids[i] = t.Subtopics[name]
	}
	return ids
}

// CatalogSource fetches the taxonomy once and caches it for the process
// lifetime. Concurrent first callers share a single fetch.
type CatalogSource struct {
	baseURL string
	http    *http.Client

	group  singleflight.Group
	mu     sync.RWMutex
	cached *Catalog
}

func NewCatalogSource(baseURL string) *CatalogSource {
	return &CatalogSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Catalog returns the cached taxonomy, fetching it on first use.
func (cs *CatalogSource) Catalog(ctx context.Context) (*Catalog, error) {
	cs.mu.RLock()
	if c := cs.cached; c != nil {
		cs.mu.RUnlock()
		return c, nil
	}
	cs.mu.RUnlock()

	v, err, _ := cs.group.Do("categories", func() (interface{}, error) {
		c, err := cs.fetch(ctx)
		if err != nil {
			return nil, err
		}
		cs.mu.Lock()
		cs.cached = c
		cs.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

func (cs *CatalogSource) fetch(ctx context.Context) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cs.baseURL+"/api_category.php", nil)
	if err != nil {
		return nil, err
	}

	resp, err := cs.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch categories: http %d", resp.StatusCode)
	}

	var parsed struct {
		TriviaCategories []Category `json:"trivia_categories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	return BuildCatalog(parsed.TriviaCategories), nil
}

// Category is one flat entry from the question source.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BuildCatalog folds flat categories into the two-level taxonomy.
func BuildCatalog(categories []Category) *Catalog {
	topics := map[string]Topic{}
	for _, c := range categories {
		topic, subtopic, found := strings.Cut(c.Name, ": ")
		if !found {
			topics[c.Name] = Topic{ID: c.ID}
			continue
		}
		t := topics[topic]
		if t.Subtopics == nil {
			t.Subtopics = map[string]int{}
		}
		t.Subtopics[subtopic] = c.ID
		topics[topic] = t
	}

	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Catalog{topics: topics, names: names}
}
