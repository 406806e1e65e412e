package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leca/tiered-images/internal/model"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteDB implements Database backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
// For in-memory use pass "file::memory:?cache=shared".
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if !strings.Contains(dsn, "?") {
		dsn += "?" + pragmas
	} else if !strings.Contains(dsn, "_pragma") {
		dsn += "&" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers; image commits are one INSERT each.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Account tiers
// ---------------------------------------------------------------------------

func (s *SQLiteDB) CreateTier(ctx context.Context, t *model.AccountTier) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO account_tiers (name, thumbnail_size_1, thumbnail_size_2, link_to_original, link_expiration_time)
		VALUES (?, ?, ?, ?, ?)`,
		t.Name, nullInt(t.ThumbnailSize1), nullInt(t.ThumbnailSize2),
		boolToInt(t.LinkToOriginal), nullInt(t.LinkExpirationTime),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert tier %q: %w", t.Name, model.ErrTierExists)
		}
		return fmt.Errorf("insert tier: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("tier id: %w", err)
	}
	t.ID = id
	return nil
}

func (s *SQLiteDB) UpdateTier(ctx context.Context, t *model.AccountTier) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE account_tiers
		SET name = ?, thumbnail_size_1 = ?, thumbnail_size_2 = ?, link_to_original = ?, link_expiration_time = ?
		WHERE id = ?`,
		t.Name, nullInt(t.ThumbnailSize1), nullInt(t.ThumbnailSize2),
		boolToInt(t.LinkToOriginal), nullInt(t.LinkExpirationTime), t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update tier %q: %w", t.Name, model.ErrTierExists)
		}
		return fmt.Errorf("update tier: %w", err)
	}
	return checkRowsAffected(res, model.ErrTierNotFound)
}

func (s *SQLiteDB) GetTier(ctx context.Context, id int64) (*model.AccountTier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, thumbnail_size_1, thumbnail_size_2, link_to_original, link_expiration_time
		FROM account_tiers WHERE id = ?`, id)
	return scanTier(row)
}

func (s *SQLiteDB) GetTierByName(ctx context.Context, name string) (*model.AccountTier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, thumbnail_size_1, thumbnail_size_2, link_to_original, link_expiration_time
		FROM account_tiers WHERE name = ?`, name)
	return scanTier(row)
}

func (s *SQLiteDB) ListTiers(ctx context.Context) ([]*model.AccountTier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, thumbnail_size_1, thumbnail_size_2, link_to_original, link_expiration_time
		FROM account_tiers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []*model.AccountTier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *SQLiteDB) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, account_tier_id, created_at)
		VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.AccountTierID, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, account_tier_id, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *SQLiteDB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, account_tier_id, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *SQLiteDB) SetUserTier(ctx context.Context, userID string, tierID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET account_tier_id = ? WHERE id = ?`, tierID, userID)
	if err != nil {
		return fmt.Errorf("update user tier: %w", err)
	}
	return checkRowsAffected(res, model.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

const imageColumns = `id, owner_id, account_tier_id, filename, checksum, original_ref,
	thumbnail_1_ref, thumbnail_2_ref, original_link, link_expires_at, created_at`

// CreateImage inserts a complete image record in a single statement.
func (s *SQLiteDB) CreateImage(ctx context.Context, img *model.Image) error {
	var expires sql.NullString
	if img.LinkExpiresAt != nil {
		expires = sql.NullString{String: formatTime(*img.LinkExpiresAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (`+imageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.OwnerID, img.AccountTierID, img.Filename, img.Checksum, img.OriginalRef,
		nullString(img.Thumbnail1Ref), nullString(img.Thumbnail2Ref), nullString(img.OriginalLink),
		expires, formatTime(img.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetImage(ctx context.Context, id string) (*model.Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ?`, id)
	return scanImage(row)
}

func (s *SQLiteDB) GetImageByOriginalRef(ctx context.Context, ref string) (*model.Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE original_ref = ?`, ref)
	return scanImage(row)
}

func (s *SQLiteDB) ListImages(ctx context.Context, q ImageQuery) ([]*model.Image, int, error) {
	where := "owner_id = ?"
	args := []any{q.OwnerID}
	if q.CreatedAt != nil {
		where += " AND created_at = ?"
		args = append(args, formatTime(*q.CreatedAt))
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count images: %w", err)
	}

	order := "ASC"
	if q.NewestFirst {
		order = "DESC"
	}

	offset := (q.Page - 1) * q.PerPage
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM images WHERE %s
		ORDER BY created_at %s, id %s
		LIMIT ? OFFSET ?`, imageColumns, where, order, order),
		append(args, q.PerPage, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []*model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanTier(row scannable) (*model.AccountTier, error) {
	t := &model.AccountTier{}
	var size1, size2, ttl sql.NullInt64
	var link int

	err := row.Scan(&t.ID, &t.Name, &size1, &size2, &link, &ttl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTierNotFound
		}
		return nil, fmt.Errorf("scan tier: %w", err)
	}
	t.ThumbnailSize1 = intPtr(size1)
	t.ThumbnailSize2 = intPtr(size2)
	t.LinkToOriginal = link != 0
	t.LinkExpirationTime = intPtr(ttl)
	return t, nil
}

func scanUser(row scannable) (*model.User, error) {
	u := &model.User{}
	var createdStr string

	err := row.Scan(&u.ID, &u.Username, &u.AccountTierID, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return u, nil
}

func scanImage(row scannable) (*model.Image, error) {
	img := &model.Image{}
	var thumb1, thumb2, link, expires sql.NullString
	var createdStr string

	err := row.Scan(&img.ID, &img.OwnerID, &img.AccountTierID, &img.Filename, &img.Checksum,
		&img.OriginalRef, &thumb1, &thumb2, &link, &expires, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scan image: %w", err)
	}

	img.Thumbnail1Ref = stringPtr(thumb1)
	img.Thumbnail2Ref = stringPtr(thumb2)
	img.OriginalLink = stringPtr(link)
	if expires.Valid {
		t, err := time.Parse(timeLayout, expires.String)
		if err != nil {
			return nil, fmt.Errorf("parse link_expires_at: %w", err)
		}
		img.LinkExpiresAt = &t
	}
	img.CreatedAt, err = time.Parse(timeLayout, createdStr)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return img, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "unique")
}

func checkRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
