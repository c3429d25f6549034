package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"github.com/elastic/go-elasticsearch/v8"
)

const DefaultIndex = "parts"

// ESReader reads parts from the catalog's search index. Documents are keyed
// by part id.
type ESReader struct {
	Client *elasticsearch.Client
	Index  string
}

type partDoc struct {
	ShopID   string `json:"shopId"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
	ImageURL string `json:"imageUrl"`
}

func (r *ESReader) index() string {
	if r.Index == "" {
		return DefaultIndex
	}
	return r.Index
}

func (r *ESReader) GetPart(ctx context.Context, id string) (models.Part, error) {
	res, err := r.Client.Get(r.index(), id, r.Client.Get.WithContext(ctx))
	if err != nil {
		return models.Part{}, fmt.Errorf("catalog get %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return models.Part{}, repo.ErrNotFound
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return models.Part{}, fmt.Errorf("catalog get %s: %s: %s", id, res.Status(), body)
	}

	var doc struct {
		ID     string  `json:"_id"`
		Found  bool    `json:"found"`
		Source partDoc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return models.Part{}, fmt.Errorf("catalog decode %s: %w", id, err)
	}
	if !doc.Found {
		return models.Part{}, repo.ErrNotFound
	}

	return models.Part{
		ID:       doc.ID,
		ShopID:   doc.Source.ShopID,
		Name:     doc.Source.Name,
		Price:    doc.Source.Price,
		Stock:    doc.Source.Stock,
		ImageURL: doc.Source.ImageURL,
	}, nil
}
