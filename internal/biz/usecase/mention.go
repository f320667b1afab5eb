package usecase

import (
	"regexp"
	"strings"

	"github.com/lumokit/chat-responder/internal/biz/domain"
)

var mentionMarker = regexp.MustCompile(`\[@([^\[\]]+?)\]`)

// TransformMentions rewrites bracketed [@target] mention markers.
//
// Standard mode replaces every marker with a space and collapses intra-line
// horizontal whitespace; newlines are preserved. Advanced mode rewrites
// [@me] to <at>selfID</at> when selfID is known (untouched otherwise) and
// every other [@target] to <at>target</at>. The same vocabulary is used for
// outgoing-to-AI text, for text persisted to history, and is the inverse of
// the response parser's <at> handling.
func TransformMentions(text string, mode domain.ResponderMode, selfID string) string {
	if mode == domain.ModeAdvanced {
		return mentionMarker.ReplaceAllStringFunc(text, func(marker string) string {
			target := marker[2 : len(marker)-1]
			if target == "me" {
				if selfID == "" {
					return marker
				}
				return "<at>" + selfID + "</at>"
			}
			return "<at>" + target + "</at>"
		})
	}

	out := mentionMarker.ReplaceAllString(text, " ")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
