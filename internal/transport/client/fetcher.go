package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fleetflow/fleetsync/internal/domain"
)

// HTTPFetcher получает снимки коллекций через REST API сервера.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher создаёт fetcher для заданного базового URL сервера.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  http.DefaultClient,
	}
}

// Fetch загружает полный снимок коллекции. Сводка analytics приходит
// объектом и оборачивается в одну запись с id "summary", чтобы кэш
// сохранял единую форму «записи с ключом id».
func (f *HTTPFetcher) Fetch(ctx context.Context, collection domain.Collection) ([]json.RawMessage, error) {
	if !domain.ValidCollection(collection) {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	body, err := f.get(ctx, "/api/"+string(collection))
	if err != nil {
		return nil, err
	}

	if collection == domain.CollectionAnalytics {
		var summary map[string]any
		if err := json.Unmarshal(body, &summary); err != nil {
			return nil, fmt.Errorf("decode analytics: %w", err)
		}
		summary["id"] = "summary"
		record, err := json.Marshal(summary)
		if err != nil {
			return nil, err
		}
		return []json.RawMessage{record}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return records, nil
}

// Probe проверяет доступность сервера.
func (f *HTTPFetcher) Probe(ctx context.Context) error {
	_, err := f.get(ctx, "/healthz")
	return err
}

func (f *HTTPFetcher) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
