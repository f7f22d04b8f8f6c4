package sample

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"
)

// DefaultDSN keeps the sample data in a shared in-memory database.
const DefaultDSN = "file:embedform-sample?mode=memory&cache=shared"

// Blog owns a list of posts.
type Blog struct {
	ID    int64
	Slug  string
	Title string
}

// Post is one blog entry.
type Post struct {
	ID        int64
	BlogID    int64
	Slug      string
	Title     string
	Body      string
	Publish   bool
	CoverName string
	CoverSize int64
	Created   time.Time
	Modified  time.Time
}

// Store persists blogs and posts in SQLite.
type Store struct {
	db *sql.DB
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS blogs (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		slug  TEXT NOT NULL,
		title TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		blog_id    INTEGER NOT NULL REFERENCES blogs(id) ON DELETE CASCADE,
		slug       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		publish    INTEGER NOT NULL DEFAULT 1,
		cover_name TEXT NOT NULL DEFAULT '',
		cover_size INTEGER NOT NULL DEFAULT 0,
		created    INTEGER NOT NULL,
		modified   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS posts_blog ON posts(blog_id, id)`,
}

// OpenStore opens dsn and creates the tables when missing.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = DefaultDSN
	}
	// modernc.org/sqlite registers itself as "sqlite".
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sample: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sample: migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seed inserts a blog with two posts when the store is empty and returns
// the first blog.
func (s *Store) Seed(ctx context.Context) (Blog, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blogs`).Scan(&count); err != nil {
		return Blog{}, fmt.Errorf("sample: seed: %w", err)
	}
	if count > 0 {
		return s.firstBlog(ctx)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO blogs (slug, title) VALUES (?, ?)`, slugify("Field notes", 25), "Field notes")
	if err != nil {
		return Blog{}, fmt.Errorf("sample: seed blog: %w", err)
	}
	blogID, err := res.LastInsertId()
	if err != nil {
		return Blog{}, fmt.Errorf("sample: seed blog: %w", err)
	}
	for _, p := range []Post{
		{BlogID: blogID, Title: "Hello world", Body: "The first post.", Publish: true},
		{BlogID: blogID, Title: "Second thoughts", Body: "A draft that needs work.", Publish: false},
	} {
		if _, err := s.CreatePost(ctx, p); err != nil {
			return Blog{}, err
		}
	}
	return s.Blog(ctx, blogID)
}

func (s *Store) firstBlog(ctx context.Context) (Blog, error) {
	var b Blog
	err := s.db.QueryRowContext(ctx, `SELECT id, slug, title FROM blogs ORDER BY id LIMIT 1`).Scan(&b.ID, &b.Slug, &b.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return Blog{}, ErrNotFound
	}
	if err != nil {
		return Blog{}, fmt.Errorf("sample: first blog: %w", err)
	}
	return b, nil
}

// Blog loads a blog by id.
func (s *Store) Blog(ctx context.Context, id int64) (Blog, error) {
	var b Blog
	err := s.db.QueryRowContext(ctx, `SELECT id, slug, title FROM blogs WHERE id = ?`, id).Scan(&b.ID, &b.Slug, &b.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return Blog{}, fmt.Errorf("sample: blog %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Blog{}, fmt.Errorf("sample: blog %d: %w", id, err)
	}
	return b, nil
}

// UpdateBlog renames a blog; the slug follows the title.
func (s *Store) UpdateBlog(ctx context.Context, id int64, title string) (Blog, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE blogs SET title = ?, slug = ? WHERE id = ?`, title, slugify(title, 25), id)
	if err != nil {
		return Blog{}, fmt.Errorf("sample: update blog %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Blog{}, fmt.Errorf("sample: update blog %d: %w", id, ErrNotFound)
	}
	return s.Blog(ctx, id)
}

const postColumns = `id, blog_id, slug, title, body, publish, cover_name, cover_size, created, modified`

// Posts lists the posts of a blog in creation order.
func (s *Store) Posts(ctx context.Context, blogID int64) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts WHERE blog_id = ? ORDER BY id`, blogID)
	if err != nil {
		return nil, fmt.Errorf("sample: posts of %d: %w", blogID, err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sample: posts of %d: %w", blogID, err)
	}
	return out, nil
}

// Post loads a post by id.
func (s *Store) Post(ctx context.Context, id int64) (Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, fmt.Errorf("sample: post %d: %w", id, ErrNotFound)
	}
	return p, err
}

// CreatePost inserts p and returns it with its id and timestamps.
func (s *Store) CreatePost(ctx context.Context, p Post) (Post, error) {
	if _, err := s.Blog(ctx, p.BlogID); err != nil {
		return Post{}, err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (blog_id, slug, title, body, publish, cover_name, cover_size, created, modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.BlogID, slugify(p.Title, 50), p.Title, p.Body, p.Publish, p.CoverName, p.CoverSize, now.Unix(), now.Unix())
	if err != nil {
		return Post{}, fmt.Errorf("sample: create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Post{}, fmt.Errorf("sample: create post: %w", err)
	}
	return s.Post(ctx, id)
}

// UpdatePost stores the editable fields of p. An empty cover name keeps the
// current cover.
func (s *Store) UpdatePost(ctx context.Context, p Post) (Post, error) {
	current, err := s.Post(ctx, p.ID)
	if err != nil {
		return Post{}, err
	}
	if p.CoverName == "" {
		p.CoverName, p.CoverSize = current.CoverName, current.CoverSize
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE posts SET slug = ?, title = ?, body = ?, publish = ?, cover_name = ?, cover_size = ?, modified = ?
		 WHERE id = ?`,
		slugify(p.Title, 50), p.Title, p.Body, p.Publish, p.CoverName, p.CoverSize, time.Now().UTC().Unix(), p.ID)
	if err != nil {
		return Post{}, fmt.Errorf("sample: update post %d: %w", p.ID, err)
	}
	return s.Post(ctx, p.ID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (Post, error) {
	var (
		p                 Post
		created, modified int64
	)
	if err := row.Scan(&p.ID, &p.BlogID, &p.Slug, &p.Title, &p.Body, &p.Publish, &p.CoverName, &p.CoverSize, &created, &modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, err
		}
		return Post{}, fmt.Errorf("sample: scan post: %w", err)
	}
	p.Created = time.Unix(created, 0).UTC()
	p.Modified = time.Unix(modified, 0).UTC()
	return p, nil
}

func slugify(title string, max int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > max {
		slug = strings.TrimSuffix(slug[:max], "-")
	}
	return slug
}
