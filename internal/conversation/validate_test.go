package conversation

import (
	"strings"
	"testing"
	"time"

	"github.com/Proton-105/studyhelper-bot/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxLength(t *testing.T) {
	validate := MaxLength(MaxDescriptionLength)

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "short", input: "Limits and continuity"},
		{name: "exactly max", input: strings.Repeat("x", 200)},
		{name: "one over max", input: strings.Repeat("x", 201), wantErr: ErrTooLong},
		{name: "multibyte at max", input: strings.Repeat("ü", 200)},
		{name: "empty", input: "   ", wantErr: ErrEmptyInput},
		{name: "max with trailing space", input: strings.Repeat("x", 200) + " ", wantErr: ErrTooLong},
		{name: "padded under max", input: "  " + strings.Repeat("x", 190) + "  "},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := validate(Input{Text: tt.input}, fixedNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.input), got)
		})
	}
}

func TestDueDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	validate := DueDate(loc)
	// 22:30 UTC on May 9 is already May 10 in UTC+3.
	now := time.Date(2024, time.May, 9, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{input: "10/05/2024", want: "2024-05-10"},
		{input: "11/05/2024", want: "2024-05-11"},
		{input: " 01/01/2030 ", want: "2030-01-01"},
		{input: "09/05/2024", wantErr: ErrDateInPast},
		{input: "2024-05-11", wantErr: ErrBadDate},
		{input: "32/01/2025", wantErr: ErrBadDate},
		{input: "1/5/2025", wantErr: ErrBadDate},
		{input: "", wantErr: ErrBadDate},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			got, err := validate(Input{Text: tt.input}, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttachedDocument(t *testing.T) {
	validate := AttachedDocument()

	_, err := validate(Input{Text: "file"}, fixedNow)
	assert.ErrorIs(t, err, ErrDocumentNeeded)

	id, err := validate(Input{Document: &Document{FileID: "abc"}}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestIntentRoundTrip(t *testing.T) {
	intents := []Intent{
		CreateSubject{Name: "Algebra", Description: "d", TeacherID: 1},
		CreateTask{SubjectID: 2, Name: "n", Description: "d", DueDate: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		UpdateTask{TaskID: 3, SubjectID: 2, Name: "n", DueDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		CreateSolution{TaskID: 3, StudentUserID: 4, FileID: "f", FileName: "a.pdf"},
		SendSupportMessage{SenderID: 1, CounterpartID: 2, Mode: "one", AsInitiator: true, Text: "hi"},
	}

	for _, intent := range intents {
		intent := intent
		t.Run(intent.Kind(), func(t *testing.T) {
			pending, err := EncodeIntent(intent)
			require.NoError(t, err)
			assert.Equal(t, intent.Kind(), pending.Kind)

			decoded, err := DecodeIntent(pending)
			require.NoError(t, err)
			assert.Equal(t, intent, decoded)
		})
	}
}

func TestDecodeIntent_Rejects(t *testing.T) {
	_, err := DecodeIntent(nil)
	assert.Error(t, err)

	_, err = DecodeIntent(&state.Pending{Kind: "drop_table", Args: []byte(`{}`)})
	assert.Error(t, err)

	_, err = DecodeIntent(&state.Pending{Kind: KindCreateSubject, Args: []byte(`{"teacher_id":"x"}`)})
	assert.Error(t, err)
}
