package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/studyhelper-bot/internal/bot/keyboard"
	"github.com/Proton-105/studyhelper-bot/internal/callback"
)

type mockTranslator struct {
	translations map[string]string
	lang         string
}

func (m *mockTranslator) T(key string) string {
	if val, ok := m.translations[key]; ok {
		return val
	}
	return key
}

func (m *mockTranslator) Lang() string {
	if m.lang == "" {
		return "en"
	}
	return m.lang
}

func solutionsPage(page int) callback.Action {
	return callback.SolutionsPageAction{SubjectID: 4, TaskID: 9, Page: page}
}

func TestPaginationButtons(t *testing.T) {
	translator := &mockTranslator{
		translations: map[string]string{
			"pagination.prev": "◀️ Prev",
			"pagination.next": "Next ▶️",
			"pagination.page": "Page {{.Page}}/{{.Total}}",
		},
	}

	testCases := []struct {
		name      string
		page      int
		total     int
		wantTexts []string
		wantPages []int
	}{
		{
			name:      "first page",
			page:      1,
			total:     5,
			wantTexts: []string{"Page 1/5", "Next ▶️"},
			wantPages: []int{1, 2},
		},
		{
			name:      "middle page",
			page:      3,
			total:     5,
			wantTexts: []string{"◀️ Prev", "Page 3/5", "Next ▶️"},
			wantPages: []int{2, 3, 4},
		},
		{
			name:      "last page",
			page:      5,
			total:     5,
			wantTexts: []string{"◀️ Prev", "Page 5/5"},
			wantPages: []int{4, 5},
		},
		{
			name:      "page beyond total is clamped",
			page:      9,
			total:     2,
			wantTexts: []string{"◀️ Prev", "Page 2/2"},
			wantPages: []int{1, 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buttons := keyboard.PaginationButtons(translator, solutionsPage, tc.page, tc.total)
			require.Len(t, buttons, len(tc.wantTexts))

			for i := range tc.wantTexts {
				assert.Equal(t, tc.wantTexts[i], buttons[i].Text)
				assert.Equal(t, solutionsPage(tc.wantPages[i]), buttons[i].Action)
			}
		})
	}
}

func TestPaginationButtons_FallbackLabels(t *testing.T) {
	buttons := keyboard.PaginationButtons(nil, solutionsPage, 2, 3)
	require.Len(t, buttons, 3)
	assert.Equal(t, "Page 2/3", buttons[1].Text)
}

func TestPageBounds(t *testing.T) {
	assert.Equal(t, 1, keyboard.TotalPages(0, 5))
	assert.Equal(t, 3, keyboard.TotalPages(11, 5))

	start, end := keyboard.PageBounds(3, 5, 11)
	assert.Equal(t, 10, start)
	assert.Equal(t, 11, end)

	start, end = keyboard.PageBounds(4, 5, 11)
	assert.Equal(t, 11, start)
	assert.Equal(t, 11, end)
}
