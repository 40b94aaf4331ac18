package connectors

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
)

var feedAttachmentSuffixes = []string{".json", ".jsonl", ".xlsx", ".xls", ".pdf"}

// HasFeedContent reports whether a raw message carries anything the
// extraction stage can read: a text or HTML body, or an attachment in
// one of the supported feed formats. Calendar invites, read receipts
// and image-only mail are dropped at fetch time instead of being
// stored and skipped later.
func HasFeedContent(raw []byte) bool {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return false
	}

	if strings.TrimSpace(env.Text) != "" || strings.TrimSpace(env.HTML) != "" {
		return true
	}

	for _, att := range env.Attachments {
		name := strings.ToLower(strings.TrimSpace(att.FileName))
		for _, suffix := range feedAttachmentSuffixes {
			if strings.HasSuffix(name, suffix) {
				return true
			}
		}
	}
	return false
}
