// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/blog-go/internal/middleware"
	"github.com/olegiv/blog-go/internal/model"
	"github.com/olegiv/blog-go/internal/render"
	"github.com/olegiv/blog-go/internal/service"
	"github.com/olegiv/blog-go/internal/store"
)

// htmlSanitizer strips dangerous markup from user-supplied rich text while
// keeping safe formatting tags.
var htmlSanitizer = bluemonday.UGCPolicy()

// dateStampFormat is the human-readable publication date stored with a post.
const dateStampFormat = "January 2, 2006"

// PostsHandler handles public post pages, comments, and post management.
type PostsHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	eventService   *service.EventService
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *PostsHandler {
	return &PostsHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		eventService:   service.NewEventService(db),
	}
}

// PostFormData holds form state for the post create/edit page.
type PostFormData struct {
	Heading    string
	Errors     map[string]string
	FormValues map[string]string
	IsEdit     bool
	PostID     int64
}

// PostViewData holds data for the single-post page.
type PostViewData struct {
	Post     store.Post
	Comments []store.CommentWithAuthor
}

// parsePostID extracts the {id} URL parameter. A malformed ID is treated
// the same as a missing post: 404.
func parsePostID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "post not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// List handles GET / - the homepage with all posts, oldest first.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queries.ListPosts(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list posts", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "index", render.TemplateData{
		Title: "Home",
		User:  middleware.GetUser(r),
		Data:  posts,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Show handles GET /post/{id} - a single post with its comments.
func (h *PostsHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, ok := requireEntityWithError(w, "post", id,
		func(id int64) (store.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	comments, err := h.queries.ListCommentsByPost(r.Context(), post.ID)
	if err != nil {
		logAndInternalError(w, "failed to list comments", "error", err, "post_id", post.ID)
		return
	}

	if err := h.renderer.Render(w, r, "post", render.TemplateData{
		Title: post.Title,
		User:  middleware.GetUser(r),
		Data:  PostViewData{Post: post, Comments: comments},
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// CreateComment handles POST /post/{id} - adds a comment to a post.
// Anonymous visitors are sent to the login page; the post is untouched.
func (h *PostsHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		flashError(w, r, h.renderer, RouteLogin, "You need to login or register to comment.")
		return
	}

	post, ok := requireEntityWithError(w, "post", id,
		func(id int64) (store.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	postURL := "/post/" + strconv.FormatInt(post.ID, 10)

	if !parseFormOrRedirect(w, r, h.renderer, postURL) {
		return
	}

	body := htmlSanitizer.Sanitize(r.FormValue("comment"))
	if strings.TrimSpace(body) == "" {
		flashError(w, r, h.renderer, postURL, "Comment text is required")
		return
	}

	comment, err := h.queries.CreateComment(r.Context(), store.CreateCommentParams{
		Body:      body,
		UserID:    user.ID,
		PostID:    post.ID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "failed to create comment", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("comment created", "comment_id", comment.ID, "post_id", post.ID, "user_id", user.ID)
	_ = h.eventService.LogCommentEvent(r.Context(), model.EventLevelInfo, "Comment created", &user.ID,
		map[string]any{"comment_id": comment.ID, "post_id": post.ID})

	http.Redirect(w, r, postURL, http.StatusSeeOther)
}

// NewForm handles GET /new-post - displays the post creation form.
func (h *PostsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	data := PostFormData{
		Heading:    "New Post",
		Errors:     make(map[string]string),
		FormValues: make(map[string]string),
	}

	if err := h.renderer.Render(w, r, "make_post", render.TemplateData{
		Title: "New Post",
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Create handles POST /new-post - creates a new post.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, RouteNewPost) {
		return
	}

	formValues, formErrors := h.validatePostForm(r, 0)
	if len(formErrors) > 0 {
		h.renderPostForm(w, r, PostFormData{
			Heading:    "New Post",
			Errors:     formErrors,
			FormValues: formValues,
		})
		return
	}

	now := time.Now()
	post, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		Title:     formValues["title"],
		Subtitle:  formValues["subtitle"],
		Date:      now.Format(dateStampFormat),
		Body:      formValues["body"],
		ImgURL:    formValues["img_url"],
		AuthorID:  user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			formErrors["title"] = "A post with that title already exists"
			h.renderPostForm(w, r, PostFormData{
				Heading:    "New Post",
				Errors:     formErrors,
				FormValues: formValues,
			})
			return
		}
		logAndInternalError(w, "failed to create post", "error", err)
		return
	}

	slog.Info("post created", "post_id", post.ID, "title", post.Title, "created_by", user.ID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post created", &user.ID,
		map[string]any{"post_id": post.ID, "title": post.Title})

	flashSuccess(w, r, h.renderer, RouteRoot, "Post created successfully")
}

// EditForm handles GET /edit-post/{id} - displays the edit form pre-filled
// with the post's current values.
func (h *PostsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, ok := requireEntityWithError(w, "post", id,
		func(id int64) (store.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	data := PostFormData{
		Heading: "Edit Post",
		Errors:  make(map[string]string),
		FormValues: map[string]string{
			"title":    post.Title,
			"subtitle": post.Subtitle,
			"body":     post.Body,
			"img_url":  post.ImgURL,
		},
		IsEdit: true,
		PostID: post.ID,
	}

	if err := h.renderer.Render(w, r, "make_post", render.TemplateData{
		Title: "Edit Post",
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Update handles POST /edit-post/{id} - updates a post in place. The author
// and the original publication date are preserved.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, ok := requireEntityWithError(w, "post", id,
		func(id int64) (store.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	postURL := "/post/" + strconv.FormatInt(post.ID, 10)

	if !parseFormOrRedirect(w, r, h.renderer, "/edit-post/"+strconv.FormatInt(post.ID, 10)) {
		return
	}

	formValues, formErrors := h.validatePostForm(r, post.ID)
	if len(formErrors) > 0 {
		h.renderPostForm(w, r, PostFormData{
			Heading:    "Edit Post",
			Errors:     formErrors,
			FormValues: formValues,
			IsEdit:     true,
			PostID:     post.ID,
		})
		return
	}

	if err := h.queries.UpdatePost(r.Context(), store.UpdatePostParams{
		Title:     formValues["title"],
		Subtitle:  formValues["subtitle"],
		Body:      formValues["body"],
		ImgURL:    formValues["img_url"],
		UpdatedAt: time.Now(),
		ID:        post.ID,
	}); err != nil {
		if store.IsUniqueViolation(err) {
			formErrors["title"] = "A post with that title already exists"
			h.renderPostForm(w, r, PostFormData{
				Heading:    "Edit Post",
				Errors:     formErrors,
				FormValues: formValues,
				IsEdit:     true,
				PostID:     post.ID,
			})
			return
		}
		logAndInternalError(w, "failed to update post", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("post updated", "post_id", post.ID, "updated_by", user.ID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post updated", &user.ID,
		map[string]any{"post_id": post.ID})

	flashSuccess(w, r, h.renderer, postURL, "Post updated successfully")
}

// Delete handles GET /delete/{id} - deletes a post and its comments.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, ok := requireEntityWithError(w, "post", id,
		func(id int64) (store.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.queries.DeletePost(r.Context(), post.ID); err != nil {
		logAndInternalError(w, "failed to delete post", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("post deleted", "post_id", post.ID, "deleted_by", user.ID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post deleted", &user.ID,
		map[string]any{"post_id": post.ID, "title": post.Title})

	flashSuccess(w, r, h.renderer, RouteRoot, "Post deleted")
}

// validatePostForm validates the create/edit post form. excludeID is the
// post being edited, or 0 when creating.
func (h *PostsHandler) validatePostForm(r *http.Request, excludeID int64) (map[string]string, map[string]string) {
	title := strings.TrimSpace(r.FormValue("title"))
	subtitle := strings.TrimSpace(r.FormValue("subtitle"))
	imgURL := strings.TrimSpace(r.FormValue("img_url"))
	body := htmlSanitizer.Sanitize(r.FormValue("body"))

	formValues := map[string]string{
		"title":    title,
		"subtitle": subtitle,
		"body":     body,
		"img_url":  imgURL,
	}

	formErrors := make(map[string]string)

	if title == "" {
		formErrors["title"] = "Title is required"
	} else if len(title) > MaxTitleLength {
		formErrors["title"] = "Title is too long"
	} else {
		exists, err := h.queries.PostTitleExists(r.Context(), store.PostTitleExistsParams{
			Title: title,
			ID:    excludeID,
		})
		if err != nil {
			slog.Error("database error checking title", "error", err)
			formErrors["title"] = "Error checking title"
		} else if exists {
			formErrors["title"] = "A post with that title already exists"
		}
	}

	if subtitle == "" {
		formErrors["subtitle"] = "Subtitle is required"
	} else if len(subtitle) > MaxSubtitleLength {
		formErrors["subtitle"] = "Subtitle is too long"
	}

	if imgURL == "" {
		formErrors["img_url"] = "Image URL is required"
	} else if len(imgURL) > MaxImgURLLength {
		formErrors["img_url"] = "Image URL is too long"
	}

	if strings.TrimSpace(body) == "" {
		formErrors["body"] = "Post body is required"
	}

	return formValues, formErrors
}

func (h *PostsHandler) renderPostForm(w http.ResponseWriter, r *http.Request, data PostFormData) {
	if err := h.renderer.Render(w, r, "make_post", render.TemplateData{
		Title: data.Heading,
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}
