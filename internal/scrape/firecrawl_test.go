package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/pkg/firecrawl"
)

type mockFirecrawl struct {
	mock.Mock
}

func (m *mockFirecrawl) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firecrawl.ScrapeResponse), args.Error(1)
}

func TestFirecrawlAdapter_Scrape(t *testing.T) {
	client := new(mockFirecrawl)
	client.On("Scrape", mock.Anything, firecrawl.ScrapeRequest{
		URL:             "https://acme.fr/about",
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	}).Return(&firecrawl.ScrapeResponse{
		Success: true,
		Data: firecrawl.PageData{
			Markdown: "# Acme\nWe build rockets.",
			Metadata: firecrawl.Metadata{Title: "Acme"},
		},
	}, nil)

	result, err := NewFirecrawlAdapter(client).Scrape(context.Background(), "https://acme.fr/about")

	require.NoError(t, err)
	assert.Equal(t, "firecrawl", result.Source)
	assert.Equal(t, "Acme", result.Page.Title)
	assert.Contains(t, result.Page.Content, "We build rockets.")
	client.AssertExpectations(t)
}

func TestFirecrawlAdapter_Scrape_Empty(t *testing.T) {
	client := new(mockFirecrawl)
	client.On("Scrape", mock.Anything, mock.Anything).Return(&firecrawl.ScrapeResponse{Success: true}, nil)

	_, err := NewFirecrawlAdapter(client).Scrape(context.Background(), "https://acme.fr/about")
	assert.Error(t, err)
}

func TestFirecrawlAdapter_Scrape_Error(t *testing.T) {
	client := new(mockFirecrawl)
	client.On("Scrape", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))

	_, err := NewFirecrawlAdapter(client).Scrape(context.Background(), "https://acme.fr/about")
	assert.Error(t, err)
}

func TestAdapters_Names(t *testing.T) {
	assert.Equal(t, "firecrawl", NewFirecrawlAdapter(nil).Name())
	assert.Equal(t, "jina", NewJinaAdapter(nil).Name())
	assert.Equal(t, "local_http", NewLocalScraper().Name())
	assert.True(t, NewLocalScraper().Supports("https://acme.fr"))
}
