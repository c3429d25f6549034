package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Skotchmaster/parts_market/internal/repo"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T, h http.HandlerFunc) *ESReader {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &ESReader{Client: client, Index: "parts"}
}

func TestESReader_GetPart(t *testing.T) {
	t.Parallel()

	r := newTestReader(t, func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/parts/_doc/p1":
			_, _ = w.Write([]byte(`{"_index":"parts","_id":"p1","found":true,"_source":{"shopId":"s1","name":"Brake pad","price":1500,"stock":4,"imageUrl":"/img/p1.png"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"_index":"parts","_id":"` + strings.TrimPrefix(req.URL.Path, "/parts/_doc/") + `","found":false}`))
		}
	})

	part, err := r.GetPart(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", part.ID)
	assert.Equal(t, "s1", part.ShopID)
	assert.Equal(t, int64(1500), part.Price)
	assert.Equal(t, 4, part.Stock)

	_, err = r.GetPart(context.Background(), "p9")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestESReader_ServerError(t *testing.T) {
	t.Parallel()

	r := newTestReader(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})

	_, err := r.GetPart(context.Background(), "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repo.ErrNotFound)
}
