package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lox/agroconnect/internal/htmlutil"
	"github.com/lox/agroconnect/internal/ids"
	"github.com/lox/agroconnect/internal/models"
)

const (
	SettingFarmerName = "farmerName"
	DefaultFarmerName = "Farmer"

	MaxPostRunes    = 2000
	DefaultPageSize = 50
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyContent = errors.New("post content is empty")
	ErrEmptyName    = errors.New("farmer name is empty")
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// NewPost holds the caller-supplied fields of a post.
type NewPost struct {
	Author   string
	Location string
	Content  string
	ImageURL string
}

// CreatePost stores a post after stripping markup from its content.
// An empty author is replaced with the farmer's display name.
func (s *Store) CreatePost(p NewPost) (*models.Post, error) {
	content := htmlutil.ToText(p.Content, MaxPostRunes)
	if content == "" {
		return nil, ErrEmptyContent
	}

	author := htmlutil.ToText(p.Author, 100)
	if author == "" {
		name, err := s.FarmerName()
		if err != nil {
			return nil, err
		}
		author = name
	}

	id, err := ids.New()
	if err != nil {
		return nil, fmt.Errorf("generate post id: %w", err)
	}

	post := &models.Post{
		ID:        id,
		Author:    author,
		Location:  htmlutil.ToText(p.Location, 100),
		Content:   content,
		ImageURL:  p.ImageURL,
		CreatedAt: s.now().UTC(),
	}

	_, err = s.db.Exec(`
		INSERT INTO posts (id, author, location, content, image_url, likes, shares, liked, created_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, FALSE, ?)
	`, post.ID, post.Author, post.Location, post.Content, post.ImageURL, post.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

const postColumns = `id, author, location, content, image_url, likes, shares, liked, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		p        models.Post
		location sql.NullString
		imageURL sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Author, &location, &p.Content, &imageURL, &p.Likes, &p.Shares, &p.Liked, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Location = location.String
	p.ImageURL = imageURL.String
	return &p, nil
}

// ListPosts returns up to limit posts, newest first.
func (s *Store) ListPosts(limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	rows, err := s.db.Query(`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (s *Store) GetPost(id string) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleLike flips the liked flag of a post, adjusting its like count.
// The count never drops below zero.
func (s *Store) ToggleLike(id string) (*models.Post, error) {
	res, err := s.db.Exec(`
		UPDATE posts
		SET liked = NOT liked,
		    likes = CASE WHEN liked THEN max(likes - 1, 0) ELSE likes + 1 END
		WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("update likes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPost(id)
}

// SharePost records a share of a post.
func (s *Store) SharePost(id string) (*models.Post, error) {
	res, err := s.db.Exec(`UPDATE posts SET shares = shares + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("update shares: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPost(id)
}

// GetSetting returns the stored value for key and whether it was present.
func (s *Store) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.now().UTC())
	return err
}

// FarmerName returns the display name, or DefaultFarmerName when unset.
func (s *Store) FarmerName() (string, error) {
	name, ok, err := s.GetSetting(SettingFarmerName)
	if err != nil {
		return "", fmt.Errorf("get farmer name: %w", err)
	}
	if !ok || name == "" {
		return DefaultFarmerName, nil
	}
	return name, nil
}

// SetFarmerName stores the display name after stripping markup and returns
// the stored value.
func (s *Store) SetFarmerName(name string) (string, error) {
	name = htmlutil.ToText(name, 100)
	if name == "" {
		return "", ErrEmptyName
	}
	if err := s.SetSetting(SettingFarmerName, name); err != nil {
		return "", fmt.Errorf("set farmer name: %w", err)
	}
	return name, nil
}
