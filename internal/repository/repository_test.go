package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestParsePostSort(t *testing.T) {
	tests := []struct {
		in   string
		want PostSort
	}{
		{"", SortLatest},
		{"latest", SortLatest},
		{"popular", SortPopular},
		{"price-low", SortPriceLow},
		{"price-high", SortPriceHigh},
		{"relevance", SortLatest},
		{"bogus", SortLatest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePostSort(tt.in), tt.in)
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off`, escapeLike("50% off"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func TestOrderFor(t *testing.T) {
	assert.Equal(t, []string{"posts.created_at DESC"}, orderFor(SortLatest))
	assert.Equal(t, "posts.views DESC", orderFor(SortPopular)[0])
	assert.Equal(t, "posts.price ASC", orderFor(SortPriceLow)[0])
	assert.Equal(t, "posts.price DESC", orderFor(SortPriceHigh)[0])
}

func TestPostRepository_HasLike(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)
	postID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `post_likes`").
		WithArgs(postID.String(), userID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	liked, err := repo.HasLike(context.Background(), postID, userID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_DeleteMissingPost(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `reply_likes`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `replies`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `post_likes`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `posts`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_DeleteRemovesDependents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `reply_likes`").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `replies`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `post_likes`").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM `posts`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_IncrementReputation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET `reputation`=reputation \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT `reputation` FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"reputation"}).AddRow(4))

	rep, err := repo.IncrementReputation(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, rep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByUsernameNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Vouches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT \\* FROM `vouches`").
		WillReturnRows(sqlmock.NewRows([]string{"voucher_id", "vouchee_id"}).
			AddRow(alice.String(), bob.String()).
			AddRow(carol.String(), alice.String()))

	set, err := repo.Vouches(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob}, set.Given)
	assert.Equal(t, []uuid.UUID{carol}, set.Received)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `categories`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx Store) error {
		return ErrNotFound
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListSearchQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)
	postID, authorID, categoryID, likerID := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT \\* FROM `posts` WHERE posts.category_id = \\? AND " +
		"\\(?LOWER\\(posts.title\\) LIKE \\? OR LOWER\\(posts.content\\) LIKE \\? OR " +
		"JSON_CONTAINS\\(posts.tags, JSON_QUOTE\\(\\?\\)\\)\\)? " +
		"ORDER BY posts.price DESC,\\s*posts.created_at DESC").
		WithArgs(categoryID.String(), `%dark\_theme 50\%%`, `%dark\_theme 50\%%`, "Dark_Theme 50%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "author_id", "category_id", "tags", "price", "is_free"}).
			AddRow(postID.String(), "UI kit", "c", authorID.String(), categoryID.String(), `["Dark_Theme 50%"]`, "10.00", false))
	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(authorID.String(), "bob"))
	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow(categoryID.String(), "Digital Goods", "digital-goods"))
	mock.ExpectQuery("SELECT \\* FROM `post_likes` WHERE post_id IN \\(\\?\\) ORDER BY created_at ASC").
		WithArgs(postID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "user_id"}).AddRow(postID.String(), likerID.String()))

	posts, err := repo.List(context.Background(), PostFilter{
		CategoryID: &categoryID,
		Query:      "  Dark_Theme 50%  ",
		Sort:       SortPriceHigh,
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, postID, posts[0].ID)
	assert.Equal(t, []string{"Dark_Theme 50%"}, posts[0].Tags)
	assert.Equal(t, []uuid.UUID{likerID}, posts[0].Likes)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "bob", posts[0].Author.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListWithoutFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `posts` ORDER BY posts.created_at DESC$").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	posts, err := repo.List(context.Background(), PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_AddRemoveVouch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	voucher, vouchee := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `vouches` \\(`voucher_id`,`vouchee_id`,`created_at`\\)").
		WithArgs(voucher.String(), vouchee.String(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `vouches` WHERE voucher_id = \\? AND vouchee_id = \\?").
		WithArgs(voucher.String(), vouchee.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, repo.AddVouch(ctx, voucher, vouchee))
	require.NoError(t, repo.RemoveVouch(ctx, voucher, vouchee))
	assert.NoError(t, mock.ExpectationsWereMet())
}
