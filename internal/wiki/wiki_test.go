package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArticleURLReturnsFirstMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "opensearch", r.URL.Query().Get("action"))
		require.Equal(t, "Eiffel Tower", r.URL.Query().Get("search"))
		fmt.Fprint(w, `["Eiffel Tower",["Eiffel Tower"],[""],["https://en.wikipedia.org/wiki/Eiffel_Tower"]]`)
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	url, err := c.ArticleURL(context.Background(), "Eiffel Tower")
	require.NoError(t, err)
	require.Equal(t, "https://en.wikipedia.org/wiki/Eiffel_Tower", url)
}

func TestArticleURLFallsBackWhenNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `["gibberish",[],[],[]]`)
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	url, err := c.ArticleURL(context.Background(), "gibberish")
	require.NoError(t, err)
	require.Equal(t, FallbackURL, url)
}

func TestArticleURLErrorsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	_, err := c.ArticleURL(context.Background(), "anything")
	require.Error(t, err)
}
