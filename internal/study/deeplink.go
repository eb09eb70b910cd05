package study

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Deep-link keys routed by /start.
const (
	LinkAddSubject   = "add_subject"
	LinkQuitSubject  = "quit_subject"
	LinkAddTask      = "add_task"
	LinkSeeTasks     = "see_tasks"
	LinkAskTeacher   = "ask_teacher"
	LinkSubjectStats = "subject_stats"
)

var knownLinks = map[string]struct{}{
	LinkAddSubject:   {},
	LinkQuitSubject:  {},
	LinkAddTask:      {},
	LinkSeeTasks:     {},
	LinkAskTeacher:   {},
	LinkSubjectStats: {},
}

// DeepLink is the payload carried by a t.me start link.
type DeepLink struct {
	Key string `json:"key"`
	ID  int64  `json:"id"`
}

// EncodeDeepLink serializes l as unpadded base64url JSON, safe for the start parameter.
func EncodeDeepLink(l DeepLink) string {
	raw, _ := json.Marshal(l)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeDeepLink parses a start parameter produced by EncodeDeepLink.
func DecodeDeepLink(payload string) (DeepLink, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return DeepLink{}, fmt.Errorf("decode deep link: %w", err)
	}

	var l DeepLink
	if err := json.Unmarshal(raw, &l); err != nil {
		return DeepLink{}, fmt.Errorf("decode deep link: %w", err)
	}
	if _, ok := knownLinks[l.Key]; !ok {
		return DeepLink{}, fmt.Errorf("decode deep link: unknown key %q", l.Key)
	}
	return l, nil
}

// StartURL returns the t.me link that opens bot with l.
func StartURL(bot string, l DeepLink) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", bot, EncodeDeepLink(l))
}
