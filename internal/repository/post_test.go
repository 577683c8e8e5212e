package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"utvibe/internal/cache"
	"utvibe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var postColumns = []string{
	"id", "author_id", "title", "likes", "liked_by", "dislikes", "disliked_by", "bookmarked_by", "expires_at",
}

var lockQuery = regexp.QuoteMeta(`SELECT * FROM "posts" WHERE id = $1`) + `.*` + regexp.QuoteMeta(`FOR UPDATE`)

func TestPostRepository_ApplyReaction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs("p1", 1).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow("p1", 10, "Pizza", 0, "{}", 1, "{7}", "{}", expires))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	post, err := repo.ApplyReaction(ctx, "p1", func(p *models.Post) error {
		p.DislikedBy = nil
		p.Dislikes = 0
		p.LikedBy = append(p.LikedBy, "7")
		p.Likes = 1
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, post.Likes)
	assert.Equal(t, []string{"7"}, []string(post.LikedBy))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ApplyReaction_MutateErrorRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs("p1", 1).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow("p1", 10, "Old", 0, "{}", 0, "{}", "{}", time.Now().Add(-time.Hour)))
	mock.ExpectRollback()

	expired := models.NewExpiredError("This post has expired")
	post, err := repo.ApplyReaction(ctx, "p1", func(p *models.Post) error {
		return expired
	})

	assert.Nil(t, post)
	assert.ErrorIs(t, err, expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ApplyReaction_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows(postColumns))
	mock.ExpectRollback()

	called := false
	_, err := repo.ApplyReaction(context.Background(), "missing", func(p *models.Post) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID(t *testing.T) {
	tests := []struct {
		name         string
		mockBehavior func(mock sqlmock.Sqlmock)
		wantCode     string
	}{
		{
			name: "Not Found",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE id = $1`)).
					WithArgs("p404", 1).
					WillReturnRows(sqlmock.NewRows(postColumns))
			},
			wantCode: models.CodeNotFound,
		},
		{
			name: "Database Error",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE id = $1`)).
					WithArgs("p404", 1).
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewPostRepository(db)
			tt.mockBehavior(mock)

			post, err := repo.GetByID(context.Background(), "p404")
			assert.Nil(t, post)
			assert.True(t, models.IsCode(err, tt.wantCode))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_ListActive_QueriesEveryCall(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for range 2 {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE expires_at > $1 ORDER BY created_at DESC`)).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows(postColumns))
	}

	for range 2 {
		posts, err := repo.ListActive(context.Background(), now)
		require.NoError(t, err)
		assert.Empty(t, posts)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, mr.Exists(cache.FeedKey), "feed caching belongs to the service")
}

func TestPostRepository_ListBookmarked(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE $1 = ANY(bookmarked_by) AND expires_at > $2 ORDER BY created_at DESC`)).
		WithArgs("7", now).
		WillReturnRows(sqlmock.NewRows(postColumns))

	posts, err := repo.ListBookmarked(context.Background(), "7", now)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Delete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE id = $1`)).
			WithArgs("p1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Delete(context.Background(), "p1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE id = $1`)).
			WithArgs("p404").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Delete(context.Background(), "p404")
		assert.True(t, models.IsCode(err, models.CodeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
