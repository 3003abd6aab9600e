package bot

import (
	"fmt"
	"strings"

	"github.com/user/vidnest/internal/model"
)

// maxListTitle is how many runes of a title a list line shows
const maxListTitle = 60

// EscapeMarkdown escapes special characters for Telegram MarkdownV2 format
func EscapeMarkdown(text string) string {
	// _ * [ ] ( ) ~ ` > # + - = | { } . ! and the escape character itself
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	result := text
	for _, char := range specialChars {
		result = strings.ReplaceAll(result, char, "\\"+char)
	}
	return result
}

// FormatDuration renders seconds as m:ss or h:mm:ss
func FormatDuration(seconds int) string {
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatSavedVideo formats a saved video into a MarkdownV2 confirmation.
// The message always holds the title, platform and link; category, tags and
// duration appear when present.
func FormatSavedVideo(video *model.Video) string {
	if video == nil {
		return ""
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("✅ *%s*", EscapeMarkdown(video.Title)))
	parts = append(parts, fmt.Sprintf("📺 %s", EscapeMarkdown(video.Platform.DisplayName())))

	if video.Category != nil {
		parts = append(parts, fmt.Sprintf("📂 %s", EscapeMarkdown(video.Category.Name)))
	}

	if len(video.Tags) > 0 {
		tags := make([]string, len(video.Tags))
		for i, tag := range video.Tags {
			tags[i] = "#" + strings.ReplaceAll(tag, " ", "_")
		}
		parts = append(parts, fmt.Sprintf("🏷 %s", EscapeMarkdown(strings.Join(tags, " "))))
	}

	if video.Duration != nil && *video.Duration > 0 {
		parts = append(parts, fmt.Sprintf("⏱ %s", EscapeMarkdown(FormatDuration(*video.Duration))))
	}

	parts = append(parts, fmt.Sprintf("🔗 %s", EscapeMarkdown(video.URL)))

	return strings.Join(parts, "\n")
}

// FormatVideoList formats numbered list lines under a heading
func FormatVideoList(heading string, videos []*model.Video) string {
	lines := []string{fmt.Sprintf("📺 *%s*\n", EscapeMarkdown(heading))}
	for i, video := range videos {
		title := []rune(video.Title)
		if len(title) > maxListTitle {
			title = append(title[:maxListTitle-3], []rune("...")...)
		}
		lines = append(lines, fmt.Sprintf("%d\\. %s\n   🔗 %s", i+1, EscapeMarkdown(string(title)), EscapeMarkdown(video.URL)))
	}
	return strings.Join(lines, "\n")
}
