package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/promptlabs/prompthub/internal/model"
	"github.com/promptlabs/prompthub/internal/store"
)

// promptColumns is the column list used for SELECT statements on the prompts table.
const promptColumns = `id, title, content, category, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func queryInsertPrompt(ctx context.Context, db executor, d model.Draft) (*model.Prompt, error) {
	now := time.Now().UTC()
	row := db.QueryRowContext(ctx, `
		INSERT INTO prompts (title, content, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+promptColumns,
		d.Title, d.Content, d.Category, now, now,
	)
	return scanPrompt(row)
}

func queryListPrompts(ctx context.Context, db executor) ([]*model.Prompt, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+promptColumns+` FROM prompts
		ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []*model.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

func queryListCategories(ctx context.Context, db executor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT category FROM prompts ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func queryUpdatePrompt(ctx context.Context, db executor, id int64, d model.Draft) (*model.Prompt, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE prompts
		SET title = ?, content = ?, category = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+promptColumns,
		d.Title, d.Content, d.Category, time.Now().UTC(), id,
	)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

func queryDeletePrompt(ctx context.Context, db executor, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// scanPrompt scans a single row into a model.Prompt.
// The row must contain columns in the order defined by promptColumns.
func scanPrompt(row scannable) (*model.Prompt, error) {
	var p model.Prompt
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.Category,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
