package comments

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldday/backend/internal/models"
)

var (
	// ErrNotFound is returned when the comment does not exist.
	ErrNotFound = errors.New("comment not found")
	// ErrAlreadyCommented is returned when the user already reviewed the activity.
	ErrAlreadyCommented = errors.New("already commented on this activity")
)

const commentColumns = `id, activity_id, user_id, content, rating, image_urls, like_count, created_at, updated_at`

// Repository handles comment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a comments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanComment(row pgx.Row, cm *models.Comment) error {
	return row.Scan(&cm.ID, &cm.ActivityID, &cm.UserID, &cm.Content, &cm.Rating,
		&cm.ImageURLs, &cm.LikeCount, &cm.CreatedAt, &cm.UpdatedAt)
}

// Create inserts a comment. One review per user per activity; a duplicate
// surfaces as ErrAlreadyCommented.
func (r *Repository) Create(ctx context.Context, cm *models.Comment) error {
	const q = `INSERT INTO comments (activity_id, user_id, content, rating, image_urls)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + commentColumns
	err := scanComment(r.pool.QueryRow(ctx, q, cm.ActivityID, cm.UserID, cm.Content, cm.Rating, cm.ImageURLs), cm)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyCommented
		}
		return err
	}
	return nil
}

// GetByID returns a comment by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	const q = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	var cm models.Comment
	if err := scanComment(r.pool.QueryRow(ctx, q, id), &cm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cm, nil
}

// Update changes the author's comment text, rating and images.
func (r *Repository) Update(ctx context.Context, cm *models.Comment) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE comments SET content = $1, rating = $2, image_urls = $3, updated_at = NOW() WHERE id = $4`,
		cm.Content, cm.Rating, cm.ImageURLs, cm.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a comment and, via cascade, its likes.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CommentWithUser is a comment joined with its author's profile and whether
// the calling user liked it.
type CommentWithUser struct {
	models.Comment
	UserName   string `json:"user_name"`
	UserAvatar string `json:"user_avatar,omitempty"`
	Liked      bool   `json:"liked"`
}

// ListByActivity returns a page of the activity's comments, newest first.
// callerID drives the per-comment liked flag.
func (r *Repository) ListByActivity(ctx context.Context, activityID, callerID uuid.UUID, page, pageSize int) ([]CommentWithUser, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	q := `SELECT c.id, c.activity_id, c.user_id, c.content, c.rating, c.image_urls, c.like_count,
			c.created_at, c.updated_at, u.full_name, COALESCE(u.avatar_url, ''),
			EXISTS(SELECT 1 FROM comment_likes l WHERE l.comment_id = c.id AND l.user_id = $2)
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.activity_id = $1
		ORDER BY c.created_at DESC
		LIMIT ` + strconv.Itoa(pageSize) + ` OFFSET ` + strconv.Itoa((page-1)*pageSize)
	rows, err := r.pool.Query(ctx, q, activityID, callerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []CommentWithUser
	for rows.Next() {
		var cw CommentWithUser
		if err := rows.Scan(&cw.ID, &cw.ActivityID, &cw.UserID, &cw.Content, &cw.Rating,
			&cw.ImageURLs, &cw.LikeCount, &cw.CreatedAt, &cw.UpdatedAt,
			&cw.UserName, &cw.UserAvatar, &cw.Liked); err != nil {
			return nil, err
		}
		list = append(list, cw)
	}
	return list, rows.Err()
}

// AverageRating returns the activity's mean rating rounded to one decimal, or
// 0 when there are no comments.
func (r *Repository) AverageRating(ctx context.Context, activityID uuid.UUID) (float64, int, error) {
	var avg *float64
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT AVG(rating), COUNT(*) FROM comments WHERE activity_id = $1`, activityID).
		Scan(&avg, &count)
	if err != nil {
		return 0, 0, err
	}
	if avg == nil {
		return 0, 0, nil
	}
	return RoundRating(*avg), count, nil
}

// RoundRating rounds a mean rating to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// ToggleLike likes the comment for the user, or unlikes it when already
// liked. The comment_likes primary key makes the toggle idempotent per user;
// the counter is adjusted in the same transaction. Returns the new liked state.
func (r *Repository) ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO comment_likes (comment_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		commentID, userID)
	if err != nil {
		return false, err
	}

	liked := tag.RowsAffected() == 1
	if liked {
		tag, err = tx.Exec(ctx,
			`UPDATE comments SET like_count = like_count + 1, updated_at = NOW() WHERE id = $1`, commentID)
	} else {
		if _, err = tx.Exec(ctx,
			`DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2`, commentID, userID); err != nil {
			return false, err
		}
		tag, err = tx.Exec(ctx,
			`UPDATE comments SET like_count = GREATEST(like_count - 1, 0), updated_at = NOW() WHERE id = $1`, commentID)
	}
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return liked, nil
}
