package ingestion

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/internal/documents"
)

const page = `<html>
<head><title>  Go Concurrency </title><style>body{color:red}</style></head>
<body>
  <nav>Home | About</nav>
  <h1>Channels</h1>
  <p>Goroutines communicate   over channels.</p>
  <script>alert("x")</script>
  <footer>copyright</footer>
</body>
</html>`

func newProcessor(store documents.Store) *Processor {
	p := NewProcessor(store)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return p
}

func TestProcessor_ProcessHTML(t *testing.T) {
	ctx := context.Background()
	store := documents.NewMemoryStore()

	docs, err := newProcessor(store).ProcessHTML(ctx, HTMLRequest{
		DocID:     "go_channels",
		SourceURL: "https://example.com/go",
		HTML:      page,
		Category:  "programming",
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got, err := store.Get(ctx, "go_channels")
	require.NoError(t, err)
	assert.Equal(t, "Channels Goroutines communicate over channels.", got.Text)
	assert.Equal(t, "Go Concurrency", got.Metadata["title"])
	assert.Equal(t, "programming", got.Metadata["category"])
	assert.Equal(t, "https://example.com/go", got.Metadata["source_url"])
	assert.Equal(t, "2024-05-01T08:00:00Z", got.Metadata["ingested_at"])
}

func TestProcessor_GeneratesStableID(t *testing.T) {
	ctx := context.Background()
	store := documents.NewMemoryStore()
	p := newProcessor(store)

	docs, err := p.ProcessHTML(ctx, HTMLRequest{SourceURL: "https://example.com/go", HTML: page})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(docs[0].ID, "html_"))
	assert.Len(t, docs[0].ID, len("html_")+12)

	_, err = p.ProcessHTML(ctx, HTMLRequest{SourceURL: "https://example.com/go", HTML: page})
	assert.ErrorIs(t, err, documents.ErrAlreadyExists)
}

func TestProcessor_NoContent(t *testing.T) {
	_, err := newProcessor(documents.NewMemoryStore()).ProcessHTML(context.Background(), HTMLRequest{
		HTML: "<html><body><script>x()</script></body></html>",
	})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestProcessor_ChunksLongPages(t *testing.T) {
	ctx := context.Background()
	store := documents.NewMemoryStore()
	p := newProcessor(store).WithChunking(60, 20)

	body := strings.Repeat("retrieval ranks every stored document again ", 6)
	docs, err := p.ProcessHTML(ctx, HTMLRequest{DocID: "long", HTML: "<p>" + body + "</p>"})
	require.NoError(t, err)
	require.Greater(t, len(docs), 1)

	for i, d := range docs {
		assert.LessOrEqual(t, len(d.Text), 60)
		assert.Equal(t, "long", d.Metadata["parent_id"])
		assert.Equal(t, i, d.Metadata["chunk_index"])
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(docs), n)
}

func TestProcessor_RollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	store := documents.NewMemoryStore()
	require.NoError(t, store.Add(ctx, documents.Document{ID: "long_chunk_1", Text: "already here"}))

	p := newProcessor(store).WithChunking(60, 0)
	body := strings.Repeat("retrieval ranks every stored document again ", 6)
	_, err := p.ProcessHTML(ctx, HTMLRequest{DocID: "long", HTML: "<p>" + body + "</p>"})
	assert.ErrorIs(t, err, documents.ErrAlreadyExists)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkText_Overlap(t *testing.T) {
	p := NewProcessor(nil).WithChunking(12, 10)
	chunks := p.chunkText("aaa bbb ccc ddd eee")
	assert.Equal(t, []string{"aaa bbb ccc", "ccc ddd eee"}, chunks)
}
