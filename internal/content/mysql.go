package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const postsSchema = `CREATE TABLE IF NOT EXISTS posts (
	id VARCHAR(255) NOT NULL PRIMARY KEY,
	slug VARCHAR(255) NOT NULL DEFAULT '',
	section VARCHAR(255) NOT NULL DEFAULT '',
	title VARCHAR(512) NOT NULL DEFAULT '',
	url VARCHAR(1024) NOT NULL DEFAULT '',
	what TEXT NOT NULL,
	why TEXT NOT NULL,
	content MEDIUMTEXT NOT NULL,
	position INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) DEFAULT CHARSET=utf8mb4`

// MySQLStore reads articles mirrored into a MySQL posts table.
type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL opens a MySQL connection using sensible defaults.
func OpenMySQL(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &MySQLStore{db: db}, nil
}

// NewMySQLStore wraps an existing connection pool.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Ping verifies the connection.
func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the posts table when it is missing.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postsSchema); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

func (s *MySQLStore) FetchCollection(ctx context.Context) ([]Article, error) {
	const query = `SELECT id, slug, section, title, url, what, why, content FROM posts ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Slug, &a.Section, &a.Title, &a.URL, &a.What, &a.Why, &a.Content); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return articles, nil
}

func (s *MySQLStore) FetchOne(ctx context.Context, slug string) (*Article, error) {
	const query = `SELECT id, slug, section, title, url, what, why, content FROM posts WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, slug)
	var a Article
	if err := row.Scan(&a.ID, &a.Slug, &a.Section, &a.Title, &a.URL, &a.What, &a.Why, &a.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup post %s: %w", slug, err)
	}
	return &a, nil
}

// Mirror replaces the table contents with articles, keeping their order, and
// returns the number of rows written. Rows are keyed on the document key;
// articles with neither id nor slug get a reserved key that no lookup accepts.
func (s *MySQLStore) Mirror(ctx context.Context, articles []Article) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin mirror: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return 0, fmt.Errorf("clear posts: %w", err)
	}

	const insert = `INSERT INTO posts (id, slug, section, title, url, what, why, content, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE slug = VALUES(slug), section = VALUES(section), title = VALUES(title), url = VALUES(url),
		what = VALUES(what), why = VALUES(why), content = VALUES(content), position = VALUES(position)`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for i, a := range articles {
		id := a.Key()
		if id == "" {
			id = unkeyedID(i)
		}
		if _, err := stmt.ExecContext(ctx, id, a.Slug, a.Section, a.Title, a.URL, a.What, a.Why, a.Content, i); err != nil {
			return 0, fmt.Errorf("insert post %s: %w", id, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mirror: %w", err)
	}
	return written, nil
}

// unkeyedID uses the __name__ form CleanSlug rejects, so the row is listed but
// can never be requested.
func unkeyedID(position int) string {
	return fmt.Sprintf("__row%d__", position)
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}
