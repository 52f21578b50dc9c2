// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// GravatarSize is the pixel size requested for comment avatars.
const GravatarSize = 80

// GravatarURL returns the gravatar image URL for an email address.
// The gravatar contract hashes the trimmed, lowercased address with md5.
func GravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	digest := md5.Sum([]byte(normalized))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=retro", digest, GravatarSize)
}
