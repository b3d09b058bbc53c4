package trivia

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildCatalogFoldsTaxonomy(t *testing.T) {
	catalog := BuildCatalog([]Category{
		{ID: 9, Name: "General Knowledge"},
		{ID: 11, Name: "Entertainment: Film"},
		{ID: 12, Name: "Entertainment: Music"},
		{ID: 15, Name: "Entertainment: Video Games"},
		{ID: 17, Name: "Science & Nature"},
	})

	require.Equal(t, []string{"Entertainment", "General Knowledge", "Science & Nature"}, catalog.Topics())

	require.False(t, catalog.HasSubtopics("General Knowledge"))
	id, ok := catalog.TopicID("General Knowledge")
	require.True(t, ok)
	require.Equal(t, 9, id)

	require.True(t, catalog.HasSubtopics("Entertainment"))
	_, ok = catalog.TopicID("Entertainment")
	require.False(t, ok, "topic with subtopics must not resolve directly")
	require.Equal(t, []int{11, 12, 15}, catalog.SubtopicIDs("Entertainment"))

	require.Nil(t, catalog.SubtopicIDs("General Knowledge"))
	require.Nil(t, catalog.SubtopicIDs("No Such Topic"))
}

func TestCatalogSourceFetchesOnceForConcurrentCallers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api_category.php", r.URL.Path)
		calls.Add(1)
		time.Sleep(20 * time.Millisecond) // keep the fetch in flight while callers pile up
		fmt.Fprint(w, `{"trivia_categories":[{"id":9,"name":"General Knowledge"},{"id":11,"name":"Entertainment: Film"}]}`)
	}))
	defer srv.Close()

	cs := NewCatalogSource(srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			catalog, err := cs.Catalog(context.Background())
			require.NoError(t, err)
			require.Equal(t, []string{"Entertainment", "General Knowledge"}, catalog.Topics())
		}()
	}
	wg.Wait()

	// Cached afterwards, no extra requests.
	_, err := cs.Catalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestCatalogSourceErrorIsNotCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"trivia_categories":[{"id":9,"name":"General Knowledge"}]}`)
	}))
	defer srv.Close()

	cs := NewCatalogSource(srv.URL)

	_, err := cs.Catalog(context.Background())
	require.Error(t, err)

	catalog, err := cs.Catalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"General Knowledge"}, catalog.Topics())
}
