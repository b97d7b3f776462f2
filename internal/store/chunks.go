package store

import (
	"context"
	"fmt"
)

// UpsertChunk stores or refreshes a memory chunk with its embedding blob.
func (s *Store) UpsertChunk(ctx context.Context, c *MemoryChunk) error {
	if c.ID == "" {
		c.ID = newID("chunk")
	}
	if c.Source == "" {
		c.Source = "note"
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO memory_chunks (id, content, embedding, source, ref_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			source = excluded.source,
			ref_id = excluded.ref_id,
			version = memory_chunks.version + 1,
			updated_at = CURRENT_TIMESTAMP`),
		c.ID, c.Content, c.Embedding, c.Source, c.RefID)
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// DeleteChunksByRef removes chunks indexed for a given entity.
func (s *Store) DeleteChunksByRef(ctx context.Context, refID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM memory_chunks WHERE ref_id = ?`), refID)
	return err
}

// EachChunk streams all embedded chunks to fn. Iteration stops on the
// first error.
func (s *Store) EachChunk(ctx context.Context, fn func(c *MemoryChunk) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, embedding, source, COALESCE(ref_id,''), version, created_at, updated_at
		FROM memory_chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("scan chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c MemoryChunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Embedding, &c.Source, &c.RefID,
			&c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountChunks returns the number of indexed chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_chunks`).Scan(&n)
	return n, err
}
