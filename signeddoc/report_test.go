package signeddoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportStartsClean(t *testing.T) {
	r := NewReport("test")
	require.False(t, r.IsProblematic())
	require.Zero(t, r.Len())
	require.Equal(t, "test: no problems", r.String())
}

func TestReportAccumulatesInOrder(t *testing.T) {
	r := NewReport("test")
	r.MissingField("id", "decoding")
	r.InvalidValue("ver", "a", "b", "decoding")
	r.RuleViolation("chain", "broken")

	entries := r.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, KindMissingField, entries[0].Kind)
	require.Equal(t, KindInvalidValue, entries[1].Kind)
	require.Equal(t, KindRuleViolation, entries[2].Kind)
	require.True(t, r.IsProblematic())
}

func TestReportInfoIsNotProblematic(t *testing.T) {
	r := NewReport("test")
	r.Info("x-custom", "7 bytes", "unknown metadata key preserved")
	require.Equal(t, 1, r.Len())
	require.False(t, r.IsProblematic())

	r.MissingField("type", "decoding")
	require.True(t, r.IsProblematic())
}

func TestReportMergePreservesOrder(t *testing.T) {
	a := NewReport("a")
	a.MissingField("id", "x")
	b := NewReport("b")
	b.MissingField("ver", "y")
	b.Info("note", "", "")

	a.Merge(b)
	entries := a.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "id", entries[0].Path)
	require.Equal(t, "ver", entries[1].Path)
	require.Equal(t, KindInfo, entries[2].Kind)
}

func TestReportEntriesReturnsCopy(t *testing.T) {
	r := NewReport("test")
	r.MissingField("id", "x")
	entries := r.Entries()
	entries[0].Path = "mutated"
	require.Equal(t, "id", r.Entries()[0].Path)
}

func TestReportJSON(t *testing.T) {
	r := NewReport("doc")
	r.InvalidEncoding("payload", "not valid JSON", "payload decoding")

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded struct {
		Context string  `json:"context"`
		Entries []Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "doc", decoded.Context)
	require.Len(t, decoded.Entries, 1)
	require.Equal(t, KindInvalidEncoding, decoded.Entries[0].Kind)
}
