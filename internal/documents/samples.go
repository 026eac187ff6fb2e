package documents

import (
	"context"
	"errors"
	"fmt"
)

// Samples is the starter corpus loaded when store.seedSamples is set.
func Samples() []Document {
	return []Document{
		{
			ID:       "doc_001",
			Text:     "Python is a high-level programming language known for its simplicity and readability. It is widely used in AI and machine learning.",
			Metadata: map[string]any{"category": "programming", "language": "python"},
		},
		{
			ID:       "doc_002",
			Text:     "FastAPI is a modern web framework for building APIs with Python. It uses type hints and provides automatic API documentation.",
			Metadata: map[string]any{"category": "frameworks", "language": "python"},
		},
		{
			ID:       "doc_003",
			Text:     "RAG (Retrieval-Augmented Generation) combines document retrieval with LLM generation to provide accurate, context-aware answers.",
			Metadata: map[string]any{"category": "ai", "technique": "rag"},
		},
		{
			ID:       "doc_004",
			Text:     "Vector databases store embeddings and enable semantic search. Popular options include Pinecone, FAISS, and ChromaDB.",
			Metadata: map[string]any{"category": "databases", "type": "vector"},
		},
		{
			ID:       "doc_005",
			Text:     "Docker containers package applications with dependencies, ensuring consistency across development and production environments.",
			Metadata: map[string]any{"category": "devops", "tool": "docker"},
		},
	}
}

// Seed adds docs to store, skipping ones that already exist. It returns the
// number of documents added.
func Seed(ctx context.Context, store Store, docs []Document) (int, error) {
	added := 0
	for _, doc := range docs {
		err := store.Add(ctx, doc)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("failed to seed %s: %w", doc.ID, err)
		}
		added++
	}
	return added, nil
}
