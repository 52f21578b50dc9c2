// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route paths.
const (
	RouteRoot     = "/"
	RouteRegister = "/register"
	RouteLogin    = "/login"
	RouteLogout   = "/logout"
	RoutePost     = "/post/{id}"
	RouteAbout    = "/about"
	RouteContact  = "/contact"
	RouteNewPost  = "/new-post"
	RouteEditPost = "/edit-post/{id}"
	RouteDelete   = "/delete/{id}"
)

// Form field limits.
const (
	MinPasswordLength = 8
	MaxTitleLength    = 250
	MaxSubtitleLength = 250
	MaxNameLength     = 100
	MaxEmailLength    = 100
	MaxImgURLLength   = 250
)
