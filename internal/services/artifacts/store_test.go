package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	root := t.TempDir()
	reports := filepath.Join(root, "reports")
	html := filepath.Join(root, "final_reports")
	store := NewStore(reports, html, arbor.NewLogger())
	return store, reports, html
}

var runAt = time.Date(2026, 10, 18, 7, 0, 5, 0, time.UTC)

func TestSubscriberKey(t *testing.T) {
	key := SubscriberKey("A.B@Example.com")
	assert.True(t, strings.HasPrefix(key, "a_b_at_example_com_"), key)
	assert.Len(t, key, len("a_b_at_example_com_")+8)

	// Surrounding whitespace and domain case are irrelevant
	assert.Equal(t, key, SubscriberKey("  A.B@example.COM "))

	// Local-part case is significant
	assert.NotEqual(t, SubscriberKey("Alice@x.com"), SubscriberKey("alice@x.com"))

	// Addresses that sanitize identically still differ
	assert.NotEqual(t, SubscriberKey("a.b@x.com"), SubscriberKey("a_b@x.com"))

	// Unsafe characters never reach the file name
	weird := SubscriberKey("o'neil+news/../@x.com")
	assert.NotContains(t, weird, "/")
	assert.NotContains(t, weird, "'")
	assert.NotContains(t, weird, "+")
}

func TestPersist(t *testing.T) {
	store, reports, _ := newTestStore(t)

	path, err := store.Persist("a@x.com", runAt, "20261018_070005", "Body of the report")
	require.NoError(t, err)

	assert.Equal(t, reports, filepath.Dir(path))
	assert.Equal(t, TextFileName(store.Key("a@x.com"), "20261018_070005"), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	assert.Equal(t, "Daily Portfolio Report for a@x.com", lines[0])
	assert.Equal(t, "Generated on: 2026-10-18 07:00:05", lines[1])
	assert.Equal(t, strings.Repeat("=", 50), lines[2])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "Body of the report", lines[4])
}

func TestPersist_DistinctStampsDistinctFiles(t *testing.T) {
	store, reports, _ := newTestStore(t)

	first, err := store.Persist("a@x.com", runAt, "20261018_070005", "one")
	require.NoError(t, err)
	second, err := store.Persist("a@x.com", runAt.Add(time.Second), "20261018_070006", "two")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPersist_CaseDistinctAddressesDoNotCollide(t *testing.T) {
	store, reports, _ := newTestStore(t)
	stamp := "20261018_070000"

	upper, err := store.Persist("Alice@x.com", runAt, stamp, "report for Alice")
	require.NoError(t, err)
	lower, err := store.Persist("alice@x.com", runAt, stamp, "report for alice")
	require.NoError(t, err)

	assert.NotEqual(t, upper, lower)

	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	data, err := os.ReadFile(upper)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "report for Alice"))
}

func writeHTML(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestLocateHTML(t *testing.T) {
	store, _, html := newTestStore(t)
	base := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	stamp := "20261018_070005"

	assert.Equal(t, "", store.LocateHTML("a@x.com", stamp), "no directory yet")

	older := writeHTML(t, html, "final_report_other_20261017_070000.html", base.Add(-time.Hour))
	newest := writeHTML(t, html, "final_report_other_20261017_080000.html", base)
	assert.Equal(t, newest, store.LocateHTML("a@x.com", stamp), "falls back to most recent")
	assert.NotEqual(t, older, newest)

	otherMatch := writeHTML(t, html, "final_report_b_at_x_com_ffffffff_"+stamp+".html", base.Add(-2*time.Hour))
	assert.Equal(t, otherMatch, store.LocateHTML("a@x.com", stamp), "stamp match beats recency")

	own := writeHTML(t, html, "final_report_"+store.Key("a@x.com")+"_"+stamp+".html", base.Add(-3*time.Hour))
	assert.Equal(t, own, store.LocateHTML("a@x.com", stamp), "key match preferred")
}

func TestLocateHTML_Disabled(t *testing.T) {
	store := NewStore(t.TempDir(), "", arbor.NewLogger())
	assert.Equal(t, "", store.LocateHTML("a@x.com", "20261018_070005"))
}

func TestStamp(t *testing.T) {
	assert.Equal(t, "20261018_070005", Stamp(time.Date(2026, 10, 18, 7, 0, 5, 0, time.UTC)))
}
