// Package artifacts persists report text files and locates HTML renderings.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
)

// StampLayout is the YYYYMMDD_HHMMSS layout used in artifact file names
const StampLayout = "20060102_150405"

// headerRule separates the report header from the body
var headerRule = strings.Repeat("=", 50)

// Store writes text reports under reportsDir and searches htmlDir for renderings
type Store struct {
	reportsDir string
	htmlDir    string
	logger     arbor.ILogger
}

var _ interfaces.ArtifactStore = (*Store)(nil)

// NewStore creates an artifact store
func NewStore(reportsDir, htmlDir string, logger arbor.ILogger) *Store {
	return &Store{
		reportsDir: reportsDir,
		htmlDir:    htmlDir,
		logger:     logger,
	}
}

// Stamp formats a time for use in artifact names
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// Key derives the filesystem-safe subscriber key: the readable sanitized address
// followed by 8 hex characters of a name-based UUID of the canonical address.
// Addresses that sanitize or lowercase to the same text still get distinct keys.
func (s *Store) Key(email string) string {
	return SubscriberKey(email)
}

// SubscriberKey is Key without a store
func SubscriberKey(email string) string {
	canonical := models.CanonicalEmail(email)
	readable := strings.NewReplacer("@", "_at_", ".", "_").Replace(strings.ToLower(canonical))
	readable = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, readable)

	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+canonical))
	suffix := strings.ReplaceAll(id.String(), "-", "")[:8]
	return readable + "_" + suffix
}

// TextFileName is daily_report_<key>_<stamp>.txt
func TextFileName(key, stamp string) string {
	return fmt.Sprintf("daily_report_%s_%s.txt", key, stamp)
}

// Persist writes the header and report text, returning the file path.
// at is the run time shown in the header; stamp names the file.
func (s *Store) Persist(email string, at time.Time, stamp string, text string) (string, error) {
	if err := os.MkdirAll(s.reportsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	path := filepath.Join(s.reportsDir, TextFileName(s.Key(email), stamp))

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Portfolio Report for %s\n", email)
	fmt.Fprintf(&b, "Generated on: %s\n", at.Format("2006-01-02 15:04:05"))
	b.WriteString(headerRule)
	b.WriteString("\n\n")
	b.WriteString(text)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	s.logger.Debug().Str("email", email).Str("path", path).Msg("Report text persisted")
	return path, nil
}

// LocateHTML finds the HTML rendering for this run. A stamp match containing the
// subscriber key wins, then any stamp match, then the most recently modified
// rendering in the directory. The last fallback can pick another subscriber's
// file when generation wrote none for this one.
func (s *Store) LocateHTML(email, stamp string) string {
	if s.htmlDir == "" {
		return ""
	}

	if stamp != "" {
		matches, err := filepath.Glob(filepath.Join(s.htmlDir, "final_report_*"+stamp+"*.html"))
		if err == nil && len(matches) > 0 {
			key := s.Key(email)
			for _, m := range matches {
				if strings.Contains(filepath.Base(m), key) {
					return m
				}
			}
			return matches[0]
		}
	}

	latest := s.latestHTML()
	if latest != "" {
		s.logger.Debug().Str("email", email).Str("path", latest).Msg("Using latest HTML report")
	}
	return latest
}

func (s *Store) latestHTML() string {
	matches, err := filepath.Glob(filepath.Join(s.htmlDir, "final_report_*.html"))
	if err != nil || len(matches) == 0 {
		return ""
	}

	var latest string
	var latestTime time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = m
			latestTime = info.ModTime()
		}
	}
	return latest
}
