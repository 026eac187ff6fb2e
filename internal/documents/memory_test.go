package documents

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{name: "valid", doc: Document{ID: "doc_001", Text: "ten chars!"}},
		{name: "dash id", doc: Document{ID: "my-doc", Text: "long enough text"}},
		{name: "unicode id", doc: Document{ID: "doc_é", Text: "long enough text"}},
		{name: "cjk id", doc: Document{ID: "文書-1", Text: "long enough text"}},
		{name: "separators only", doc: Document{ID: "__-", Text: "long enough text"}, wantErr: true},
		{name: "empty id", doc: Document{Text: "long enough text"}, wantErr: true},
		{name: "bad id", doc: Document{ID: "doc 1", Text: "long enough text"}, wantErr: true},
		{name: "short text", doc: Document{ID: "d1", Text: "too short"}, wantErr: true},
		{name: "blank text", doc: Document{ID: "d1", Text: "            "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDocument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocument_Category(t *testing.T) {
	assert.Equal(t, "devops", Document{Metadata: map[string]any{"category": "devops"}}.Category())
	assert.Equal(t, "uncategorized", Document{}.Category())
	assert.Equal(t, "uncategorized", Document{Metadata: map[string]any{"category": 7}}.Category())
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc := Document{ID: "doc_a", Text: "first document text"}
	require.NoError(t, s.Add(ctx, doc))
	assert.ErrorIs(t, s.Add(ctx, doc), ErrAlreadyExists)

	got, err := s.Get(ctx, "doc_a")
	require.NoError(t, err)
	assert.Equal(t, "first document text", got.Text)
	assert.NotNil(t, got.Metadata)

	old, err := s.Update(ctx, Document{ID: "doc_a", Text: "second document text", Metadata: map[string]any{"category": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "first document text", old.Text)

	_, err = s.Update(ctx, Document{ID: "missing", Text: "some other text"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "doc_a"))
	assert.ErrorIs(t, s.Delete(ctx, "doc_a"), ErrNotFound)

	_, err = s.Get(ctx, "doc_a")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(ctx, Document{ID: id, Text: "document body " + id}))
	}
	_, err := s.Update(ctx, Document{ID: "a", Text: "updated body a"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "c"))
	require.NoError(t, s.Add(ctx, Document{ID: "c", Text: "document body c"}))

	docs, err := s.List(ctx)
	require.NoError(t, err)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, Document{ID: "a", Text: "document body a", Metadata: map[string]any{"k": "v"}}))

	docs, err := s.List(ctx)
	require.NoError(t, err)
	docs[0].Metadata["k"] = "changed"

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v", got.Metadata["k"])
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Add(ctx, Document{ID: fmt.Sprintf("doc_%d", i), Text: "concurrent document"})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.List(ctx)
		}()
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	added, err := Seed(ctx, s, Samples())
	require.NoError(t, err)
	assert.Equal(t, 5, added)

	added, err = Seed(ctx, s, Samples())
	require.NoError(t, err)
	assert.Zero(t, added)
}
