package study

import (
	"encoding/base64"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/Proton-105/studyhelper-bot/internal/domain"
)

var startParam = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func TestDeepLink_RoundTrip(t *testing.T) {
	for key := range knownLinks {
		l := DeepLink{Key: key, ID: 123456789}
		payload := EncodeDeepLink(l)
		assert.Regexp(t, startParam, payload)

		decoded, err := DecodeDeepLink(payload)
		require.NoError(t, err)
		assert.Equal(t, l, decoded)
	}
}

func TestDecodeDeepLink_Rejects(t *testing.T) {
	tests := map[string]string{
		"not base64":  "%%%",
		"not json":    base64.RawURLEncoding.EncodeToString([]byte("hello")),
		"unknown key": base64.RawURLEncoding.EncodeToString([]byte(`{"key":"drop","id":1}`)),
		"empty":       "",
	}

	for name, payload := range tests {
		payload := payload
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDeepLink(payload)
			assert.Error(t, err)
		})
	}
}

func TestGroupReminders(t *testing.T) {
	due := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
	rows := []domain.PendingReminder{
		{StudentUserID: 20, SubjectName: "Algebra", TaskName: "HW1", DueDate: due},
		{StudentUserID: 10, SubjectName: "Physics", TaskName: "Lab", DueDate: due},
		{StudentUserID: 20, SubjectName: "Physics", TaskName: "Lab", DueDate: due},
	}

	reminders := GroupReminders(rows)
	require.Len(t, reminders, 2)
	assert.Equal(t, int64(10), reminders[0].StudentUserID)
	assert.Equal(t, int64(20), reminders[1].StudentUserID)
	assert.Equal(t, []ReminderItem{
		{Subject: "Algebra", Task: "HW1", Due: due},
		{Subject: "Physics", Task: "Lab", Due: due},
	}, reminders[1].Items)

	msg := ReminderMessage(reminders[1].Items)
	assert.Equal(t, "reminders.header", msg.Key)
	require.Len(t, msg.Lines, 2)
	assert.Equal(t, Line{Key: "reminders.item", Args: []any{"Algebra", "HW1", "11/05/2024"}}, msg.Lines[0])
}

func TestFormatStats(t *testing.T) {
	st := &domain.SubjectStats{
		Subject:  domain.Subject{Name: "Algebra"},
		Students: 3,
		Tasks:    []domain.TaskStats{{TaskName: "HW1", Solutions: 2}},
		Grades:   []domain.GradeCount{{Grade: 9, Count: 2}},
	}

	text := FormatStats(st)
	assert.Contains(t, text, "Stats for subject Algebra")
	assert.Contains(t, text, "- HW1: 2")
	assert.Contains(t, text, " 9 | ## 2")

	empty := FormatStats(&domain.SubjectStats{Subject: domain.Subject{Name: "Empty"}})
	assert.Contains(t, empty, "No data")

	assert.False(t, domain.Solution{}.Graded())
	assert.True(t, domain.Solution{Grade: null.IntFrom(1)}.Graded())
}
