// Package postgres loads question-bank content from Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"mesh-jeopardy-service/internal/bank"
	"mesh-jeopardy-service/internal/domain"
)

// QuestionLoader reads the questions table (answers stored as a JSONB array
// of accepted strings). It satisfies bank.Source.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

var _ bank.Source = (*QuestionLoader)(nil)

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT text, answers, points FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var records []domain.QuestionRecord
	for rows.Next() {
		var (
			text   string
			raw    []byte
			points int
		)
		if err := rows.Scan(&text, &raw, &points); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var answers []string
		if err := json.Unmarshal(raw, &answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers for %q: %w", text, err)
		}
		for i := range answers {
			answers[i] = strings.ToLower(strings.TrimSpace(answers[i]))
		}
		if len(answers) == 0 {
			// Record without an accepted answer can never be scored.
			continue
		}
		if points <= 0 {
			points = bank.DefaultPoints
		}
		records = append(records, domain.QuestionRecord{Text: text, Answers: answers, Points: points})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return records, nil
}
