package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

const insightColumns = "id, entry_id, entry_date, insight_type, content, metadata, " +
	"source_text, source_start, source_end, created_at"

// insightMetadataJSON is the stored shape of the metadata column.
// Emotion rows use intensity and trigger, person rows use relationship and context.
type insightMetadataJSON struct {
	Intensity    int                 `json:"intensity,omitempty"`
	Trigger      string              `json:"trigger,omitempty"`
	Relationship string              `json:"relationship,omitempty"`
	Context      string              `json:"context,omitempty"`
	Sentiment    string              `json:"sentiment"`
	Source       *domain.SourceRange `json:"source,omitempty"`
}

// ==================== Insight Store ====================

// insightStore implements driven.InsightStore.
type insightStore struct {
	store *Store
}

var _ driven.InsightStore = (*insightStore)(nil)

// SaveInsights stores insights in a single transaction.
func (s *insightStore) SaveInsights(ctx context.Context, insights []domain.Insight) error {
	if len(insights) == 0 {
		return nil
	}

	return s.store.do(ctx, "saving insights", func(ctx context.Context) error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO journal_insights (`+insightColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i := range insights {
			in := &insights[i]
			if !in.Type.IsValid() {
				return fmt.Errorf("%w: insight type %q", domain.ErrInvalidInput, in.Type)
			}
			if in.CreatedAt.IsZero() {
				in.CreatedAt = time.Now()
			}

			metadata, err := encodeInsightMetadata(in)
			if err != nil {
				return err
			}

			var sourceText, sourceStart, sourceEnd any
			if in.Source != nil {
				sourceText, sourceStart, sourceEnd = in.Source.Quote, in.Source.Start, in.Source.End
			}

			if _, err := stmt.ExecContext(ctx, in.ID, in.EntryID, in.EntryDate, string(in.Type),
				in.Content, metadata, sourceText, sourceStart, sourceEnd,
				formatTime(in.CreatedAt)); err != nil {
				return fmt.Errorf("saving insight: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}

// DeleteInsights removes every insight of an entry.
func (s *insightStore) DeleteInsights(ctx context.Context, entryID string) error {
	return s.store.do(ctx, "deleting insights", func(ctx context.Context) error {
		if _, err := s.store.db.ExecContext(ctx, "DELETE FROM journal_insights WHERE entry_id = ?", entryID); err != nil {
			return fmt.Errorf("deleting insights: %w", err)
		}
		return nil
	})
}

// DeleteAllInsights removes every insight and returns how many were removed.
func (s *insightStore) DeleteAllInsights(ctx context.Context) (int, error) {
	var n int64
	err := s.store.do(ctx, "deleting all insights", func(ctx context.Context) error {
		res, err := s.store.db.ExecContext(ctx, "DELETE FROM journal_insights")
		if err != nil {
			return fmt.Errorf("deleting all insights: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// HasInsights reports whether the entry has at least one insight.
func (s *insightStore) HasInsights(ctx context.Context, entryID string) (bool, error) {
	var exists int
	err := s.store.do(ctx, "checking insights", func(ctx context.Context) error {
		return s.store.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM journal_insights WHERE entry_id = ?)", entryID).Scan(&exists)
	})
	return exists == 1, err
}

// FindInsights returns insights matching the lookup, newest entry first.
func (s *insightStore) FindInsights(ctx context.Context, lookup domain.InsightLookup) ([]domain.Insight, error) {
	if lookup.EntryIDs != nil && len(lookup.EntryIDs) == 0 {
		return []domain.Insight{}, nil
	}

	var where []string
	var args []any

	if len(lookup.Types) > 0 {
		where = append(where, "insight_type IN ("+placeholders(len(lookup.Types))+")")
		for _, t := range lookup.Types {
			args = append(args, string(t))
		}
	}
	if len(lookup.Sentiments) > 0 {
		where = append(where, "json_extract(metadata, '$.sentiment') IN ("+placeholders(len(lookup.Sentiments))+")")
		for _, st := range lookup.Sentiments {
			args = append(args, string(st))
		}
	}
	if lookup.DateRange != nil {
		where = append(where, "entry_date BETWEEN ? AND ?")
		args = append(args, lookup.DateRange.Start, lookup.DateRange.End)
	}
	if len(lookup.EntryIDs) > 0 {
		where = append(where, "entry_id IN ("+placeholders(len(lookup.EntryIDs))+")")
		args = append(args, stringArgs(lookup.EntryIDs)...)
	}
	if name := strings.TrimSpace(lookup.Name); name != "" {
		if lookup.ExactName {
			where = append(where, "LOWER(content) = LOWER(?)")
			args = append(args, name)
		} else {
			where = append(where, `LOWER(content) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(strings.ToLower(name))+"%")
		}
	}

	query := "SELECT " + insightColumns + " FROM journal_insights"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY entry_date DESC, created_at DESC, id"
	if lookup.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, lookup.Limit)
	}

	var insights []domain.Insight
	err := s.store.do(ctx, "finding insights", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying insights: %w", err)
		}
		defer rows.Close()

		insights = make([]domain.Insight, 0)
		for rows.Next() {
			insight, err := scanInsight(rows)
			if err != nil {
				return err
			}
			insights = append(insights, *insight)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating insights: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return insights, nil
}

// InsightStats returns insight totals. Queue counts are left to the caller.
func (s *insightStore) InsightStats(ctx context.Context) (*domain.AnalyticsStats, error) {
	stats := &domain.AnalyticsStats{InsightsByType: map[domain.InsightType]int{
		domain.InsightEmotion: 0,
		domain.InsightPerson:  0,
	}}

	err := s.store.do(ctx, "reading insight stats", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, "SELECT insight_type, COUNT(*) FROM journal_insights GROUP BY insight_type")
		if err != nil {
			return fmt.Errorf("counting insights: %w", err)
		}
		defer rows.Close()

		stats.TotalInsights = 0
		for rows.Next() {
			var t string
			var n int
			if err := rows.Scan(&t, &n); err != nil {
				return fmt.Errorf("scanning insight count: %w", err)
			}
			stats.InsightsByType[domain.InsightType(t)] = n
			stats.TotalInsights += n
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating insight counts: %w", err)
		}

		var lastCreated sql.NullString
		if err := s.store.db.QueryRowContext(ctx,
			"SELECT COUNT(DISTINCT entry_id), MAX(created_at) FROM journal_insights",
		).Scan(&stats.EntriesAnalyzed, &lastCreated); err != nil {
			return fmt.Errorf("reading analysed entries: %w", err)
		}
		if t := parseNullableTime(lastCreated); !t.IsZero() {
			stats.LastAnalyzedAt = &t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// encodeInsightMetadata renders the metadata column for an insight.
func encodeInsightMetadata(in *domain.Insight) (string, error) {
	meta := insightMetadataJSON{Source: in.Source}

	switch in.Type {
	case domain.InsightEmotion:
		em := in.Metadata.Emotion
		if em == nil {
			em = &domain.EmotionMetadata{}
		}
		meta.Intensity = domain.ClampIntensity(em.Intensity)
		meta.Trigger = em.Trigger
		meta.Sentiment = string(domain.NormaliseSentiment(string(em.Sentiment), in.Type))
	case domain.InsightPerson:
		pm := in.Metadata.Person
		if pm == nil {
			pm = &domain.PersonMetadata{}
		}
		meta.Relationship = pm.Relationship
		meta.Context = pm.Context
		meta.Sentiment = string(domain.NormaliseSentiment(string(pm.Sentiment), in.Type))
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encoding insight metadata: %w", err)
	}
	return string(data), nil
}

// scanInsight scans a single insight row and decodes its metadata.
func scanInsight(row rowScanner) (*domain.Insight, error) {
	var in domain.Insight
	var insightType, metadata, createdAt string
	var sourceText sql.NullString
	var sourceStart, sourceEnd sql.NullInt64

	if err := row.Scan(&in.ID, &in.EntryID, &in.EntryDate, &insightType, &in.Content, &metadata,
		&sourceText, &sourceStart, &sourceEnd, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning insight: %w", err)
	}

	in.Type = domain.InsightType(insightType)
	in.CreatedAt = parseTime(createdAt)

	var meta insightMetadataJSON
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
			return nil, fmt.Errorf("decoding insight metadata: %w", err)
		}
	}

	switch in.Type {
	case domain.InsightEmotion:
		in.Metadata.Emotion = &domain.EmotionMetadata{
			Intensity: domain.ClampIntensity(meta.Intensity),
			Trigger:   meta.Trigger,
			Sentiment: domain.NormaliseSentiment(meta.Sentiment, in.Type),
		}
	case domain.InsightPerson:
		in.Metadata.Person = &domain.PersonMetadata{
			Relationship: meta.Relationship,
			Sentiment:    domain.NormaliseSentiment(meta.Sentiment, in.Type),
			Context:      meta.Context,
		}
	}

	switch {
	case sourceStart.Valid && sourceEnd.Valid:
		in.Source = &domain.SourceRange{
			Start: int(sourceStart.Int64),
			End:   int(sourceEnd.Int64),
			Quote: sourceText.String,
		}
	case meta.Source != nil:
		in.Source = meta.Source
	}

	return &in, nil
}

// escapeLike escapes LIKE wildcards using backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
