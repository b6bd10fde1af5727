package ingest

import (
	"regexp"
	"strings"

	"github.com/statbot-io/statbot/internal/model"
)

var urlPattern = regexp.MustCompile(`https?://\S{2,}`)

// CountMessage computes the per-message contribution to a StatEntry.
//
// Words are whitespace-delimited tokens, characters the rune length of the
// content, links the URL matches in the content. Bot messages are usually
// embed-driven rather than free text, so for bot authors the embed payload
// lengths also count as characters and every embed carrying a URL counts as
// a link. The same rule applies on both the live path and recalculation.
func CountMessage(msg *model.Message) model.StatsUnit {
	unit := model.StatsUnit{
		Messages:    1,
		Words:       int64(len(strings.Fields(msg.Content))),
		Characters:  int64(len([]rune(msg.Content))),
		Attachments: int64(msg.Attachments),
		Links:       int64(len(urlPattern.FindAllString(msg.Content, -1))),
	}
	if msg.AuthorIsBot {
		for _, embed := range msg.Embeds {
			unit.Characters += int64(embed.Length)
			if embed.URL != "" {
				unit.Links++
			}
		}
	}
	return unit
}
