// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/blog-go/internal/middleware"
	"github.com/olegiv/blog-go/internal/render"
)

// StaticHandler serves the fixed informational pages.
type StaticHandler struct {
	renderer *render.Renderer
}

// NewStaticHandler creates a new StaticHandler.
func NewStaticHandler(renderer *render.Renderer) *StaticHandler {
	return &StaticHandler{renderer: renderer}
}

// About handles GET /about.
func (h *StaticHandler) About(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "about", render.TemplateData{
		Title: "About Me",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Contact handles GET /contact.
func (h *StaticHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "contact", render.TemplateData{
		Title: "Contact Me",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}
