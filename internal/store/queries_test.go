package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/blog-go/internal/store"
	"github.com/olegiv/blog-go/internal/testutil"
)

func newTestQueries(t *testing.T) (*store.Queries, *sql.DB) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return store.New(db), db
}

func createUser(t *testing.T, q *store.Queries, email, role string) store.User {
	t.Helper()
	now := time.Now()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c29tZXNhbHQ$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Role:         role,
		Name:         "Test User",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return user
}

func createPost(t *testing.T, q *store.Queries, authorID int64, title string) store.Post {
	t.Helper()
	now := time.Now()
	post, err := q.CreatePost(context.Background(), store.CreatePostParams{
		Title:     title,
		Subtitle:  "A subtitle",
		Date:      now.Format("January 2, 2006"),
		Body:      "<p>Body</p>",
		ImgURL:    "https://example.com/img.jpg",
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return post
}

func TestCreateAndGetUser(t *testing.T) {
	q, _ := newTestQueries(t)
	ctx := context.Background()

	user := createUser(t, q, "alice@example.com", store.RoleAdmin)
	assert.True(t, user.IsAdmin())

	byID, err := q.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := q.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = q.GetUserByEmail(ctx, "missing@example.com")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	q, _ := newTestQueries(t)

	createUser(t, q, "alice@example.com", store.RoleUser)

	now := time.Now()
	_, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         store.RoleUser,
		Name:         "Duplicate",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))
}

func TestCountUsers(t *testing.T) {
	q, _ := newTestQueries(t)
	ctx := context.Background()

	count, err := q.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	createUser(t, q, "one@example.com", store.RoleAdmin)
	createUser(t, q, "two@example.com", store.RoleUser)

	count, err = q.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpdateUserLastLogin(t *testing.T) {
	q, _ := newTestQueries(t)
	ctx := context.Background()

	user := createUser(t, q, "alice@example.com", store.RoleUser)
	assert.False(t, user.LastLoginAt.Valid)

	err := q.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	})
	require.NoError(t, err)

	updated, err := q.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, updated.LastLoginAt.Valid)
}

func TestListPostsInsertionOrder(t *testing.T) {
	q, _ := newTestQueries(t)

	author := createUser(t, q, "admin@example.com", store.RoleAdmin)
	createPost(t, q, author.ID, "Zebra Post")
	createPost(t, q, author.ID, "Alpha Post")

	posts, err := q.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Zebra Post", posts[0].Title)
	assert.Equal(t, "Alpha Post", posts[1].Title)

	count, err := q.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPostTitleExists(t *testing.T) {
	q, _ := newTestQueries(t)
	ctx := context.Background()

	author := createUser(t, q, "admin@example.com", store.RoleAdmin)
	post := createPost(t, q, author.ID, "Taken Title")

	exists, err := q.PostTitleExists(ctx, store.PostTitleExistsParams{Title: "Taken Title"})
	require.NoError(t, err)
	assert.True(t, exists)

	// The post itself is excluded when editing
	exists, err = q.PostTitleExists(ctx, store.PostTitleExistsParams{Title: "Taken Title", ID: post.ID})
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = q.PostTitleExists(ctx, store.PostTitleExistsParams{Title: "Free Title"})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdatePostLeavesDateAndAuthor(t *testing.T) {
	q, _ := newTestQueries(t)
	ctx := context.Background()

	author := createUser(t, q, "admin@example.com", store.RoleAdmin)
	post := createPost(t, q, author.ID, "Original")

	err := q.UpdatePost(ctx, store.UpdatePostParams{
		Title:     "Renamed",
		Subtitle:  "New subtitle",
		Body:      "<p>New body</p>",
		ImgURL:    "https://example.com/new.jpg",
		UpdatedAt: time.Now(),
		ID:        post.ID,
	})
	require.NoError(t, err)

	updated, err := q.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, post.Date, updated.Date)
	assert.Equal(t, post.AuthorID, updated.AuthorID)
}

func TestDeletePostCascadesComments(t *testing.T) {
	q, _ := newTestQueries(t)
	ctx := context.Background()

	author := createUser(t, q, "admin@example.com", store.RoleAdmin)
	commenter := createUser(t, q, "bob@example.com", store.RoleUser)
	post := createPost(t, q, author.ID, "Doomed")

	_, err := q.CreateComment(ctx, store.CreateCommentParams{
		Body:      "<p>Hello</p>",
		UserID:    commenter.ID,
		PostID:    post.ID,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, q.DeletePost(ctx, post.ID))

	_, err = q.GetPostByID(ctx, post.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	count, err := q.CountCommentsByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestListCommentsByPost(t *testing.T) {
	q, _ := newTestQueries(t)
	ctx := context.Background()

	author := createUser(t, q, "admin@example.com", store.RoleAdmin)
	commenter := createUser(t, q, "bob@example.com", store.RoleUser)
	post := createPost(t, q, author.ID, "Discussed")
	other := createPost(t, q, author.ID, "Quiet")

	for _, body := range []string{"<p>first</p>", "<p>second</p>"} {
		_, err := q.CreateComment(ctx, store.CreateCommentParams{
			Body:      body,
			UserID:    commenter.ID,
			PostID:    post.ID,
			CreatedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	comments, err := q.ListCommentsByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "<p>first</p>", comments[0].Body)
	assert.Equal(t, "Test User", comments[0].AuthorName)
	assert.Equal(t, "bob@example.com", comments[0].AuthorEmail)

	comments, err = q.ListCommentsByPost(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCreateEvent(t *testing.T) {
	q, _ := newTestQueries(t)

	user := createUser(t, q, "alice@example.com", store.RoleUser)

	event, err := q.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     "info",
		Category:  "auth",
		Message:   "User logged in",
		UserID:    sql.NullInt64{Int64: user.ID, Valid: true},
		Metadata:  `{"email":"alice@example.com"}`,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.Equal(t, "auth", event.Category)
}
