package note

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesWhitespaceAndCase(t *testing.T) {
	n := Normalize("Patient   Reports\tANXIETY")
	assert.Equal(t, "patient reports anxiety", n.Text)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := "Patient reports anxiety.\nDenies  insomnia; sleeps WELL."
	a := Normalize(raw)
	b := Normalize(raw)
	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Clauses, b.Clauses)
}

func TestNormalizeClauseSegmentation(t *testing.T) {
	n := Normalize("Reports anxiety. Denies insomnia; appetite poor\nMood stable")

	require.Len(t, n.Clauses, 4)
	spans := make([]string, len(n.Clauses))
	for i, c := range n.Clauses {
		spans[i] = n.Text[c.Start:c.End]
	}
	assert.Equal(t, []string{
		"reports anxiety.",
		"denies insomnia;",
		"appetite poor",
		"mood stable",
	}, spans)
}

func TestNormalizeEmptyAndBlank(t *testing.T) {
	assert.Empty(t, Normalize("").Text)
	assert.Empty(t, Normalize("").Clauses)
	assert.Empty(t, Normalize("   \n\t ").Text)
}

func TestSnippetPreservesOriginalCase(t *testing.T) {
	raw := "Patient   reports ANXIETY today"
	n := Normalize(raw)

	// "anxiety" in normalized text.
	start := 16
	end := start + len("anxiety")
	require.Equal(t, "anxiety", n.Text[start:end])
	assert.Equal(t, "ANXIETY", n.Snippet(start, end))
}

func TestOriginalSpanAcrossCollapsedWhitespace(t *testing.T) {
	raw := "chest\n\n  PAIN"
	n := Normalize(raw)
	require.Equal(t, "chest pain", n.Text)

	s, e := n.OriginalSpan(0, len(n.Text))
	assert.Equal(t, "chest\n\n  PAIN", raw[s:e])
}

func TestClauseAt(t *testing.T) {
	n := Normalize("Reports anxiety. Denies insomnia.")
	require.Len(t, n.Clauses, 2)

	c, ok := n.ClauseAt(0)
	require.True(t, ok)
	assert.Equal(t, n.Clauses[0], c)

	// Start offset of "denies".
	denies := n.Clauses[1].Start
	c, ok = n.ClauseAt(denies)
	require.True(t, ok)
	assert.Equal(t, n.Clauses[1], c)

	_, ok = n.ClauseAt(len(n.Text) + 10)
	assert.False(t, ok)
}

func TestParseServiceDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-01", "2024-01-01", true},
		{"01/02/2024", "2024-01-02", true},
		{"1/2/2024", "2024-01-02", true},
		{"2024-01-01 13:45:00", "2024-01-01", true},
		{"2024-01-01T13:45:00Z", "2024-01-01", true},
		{"Jan 2, 2024", "2024-01-02", true},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseServiceDate(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), tt.in)
	}
}

func TestFromRawFieldVariants(t *testing.T) {
	n := FromRaw(map[string]string{
		"patientId":      "P1",
		"Note ID":        "N1",
		"Date of Service": "2024-03-05",
		"note_text":      "Patient reports anxiety",
	})
	assert.Equal(t, "P1", string(n.PatientID))
	assert.Equal(t, "N1", string(n.NoteID))
	assert.Equal(t, "2024-03-05", n.DateOfService.Format("2006-01-02"))
	assert.Equal(t, "Patient reports anxiety", n.RawText)
	assert.NoError(t, n.Validate())
}

func TestValidate(t *testing.T) {
	valid := FromRaw(map[string]string{
		"patient_id": "P1", "note_id": "N1",
		"date_of_service": "2024-01-01", "text": "anxiety",
	})
	assert.NoError(t, valid.Validate())

	noText := valid
	noText.RawText = "  "
	assert.Error(t, noText.Validate())

	noDate := valid
	noDate.DateOfService = time.Time{}
	assert.Error(t, noDate.Validate())
}
