// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/trifactor-tui/internal/ui/styles"
	"github.com/jeranaias/trifactor-tui/internal/util"
)

// bannerChrome is the width taken by the banner's border and padding.
const bannerChrome = 3

// RenderBanner renders the error banner wrapped to width cells. remaining is
// shown as a countdown; zero hides it. An empty text renders nothing.
func RenderBanner(theme *styles.Theme, text string, remaining time.Duration, width int) string {
	if text == "" {
		return ""
	}

	body := styles.StatusIndicators.Error + " " + text
	if width > bannerChrome {
		body = strings.Join(util.WrapWidth(body, width-bannerChrome), "\n")
	}

	out := theme.Banner.Render(body)
	if remaining > 0 {
		secs := int((remaining + time.Second - 1) / time.Second)
		out += "\n" + theme.BannerTimer.Render(fmt.Sprintf("dismisses in %ds", secs))
	}
	return out
}
