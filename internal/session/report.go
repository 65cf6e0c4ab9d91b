package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/ident"
)

const (
	noticeKey      = "last_notice_date"
	noticeInterval = 28 * 24 * time.Hour
	noticeText     = "sift keeps fingerprints for every known test; run `sift gc` after large refactors to compact the database."
)

// headerMessage builds the one-line run summary: changed files, skipped
// collection, libraries-upgrade flag, environment.
func (s *Session) headerMessage(stab *engine.StabilityResult, records []ident.NodeRecord) string {
	var b strings.Builder

	if s.cfg.Apply {
		changed := strings.Join(stab.SortedUnstableFiles(), ", ")
		if changed == "" || len(changed) > 100 {
			changed = fmt.Sprintf("%d", len(stab.UnstableFiles))
		}

		if len(stab.UnstableFiles) == 0 && len(stab.StableFiles) == 0 && len(records) == 0 {
			b.WriteString("new DB, ")
		} else {
			if stab.LibrariesMiss {
				b.WriteString("libraries upgrade, ")
			}
			fmt.Fprintf(&b, "changed files: %s, skipping %d stable test(s), ", changed, len(stab.StableNodes))
		}
	}

	if s.cfg.Environment != "" {
		fmt.Fprintf(&b, "environment: %s", s.cfg.Environment)
	}
	return strings.TrimSuffix(b.String(), ", ")
}

// maintenanceNotice returns the periodic notice when due and records that
// it was shown. Attribute errors only suppress the notice.
func (s *Session) maintenanceNotice(ctx context.Context) string {
	today := time.Now().UTC().Format(time.DateOnly)

	last, ok, err := s.st.FetchAttribute(ctx, noticeKey)
	if err != nil {
		return ""
	}
	if ok {
		lastDate, err := time.Parse(time.DateOnly, last)
		if err == nil && time.Since(lastDate) < noticeInterval {
			return ""
		}
	}

	if err := s.st.WriteAttribute(ctx, noticeKey, today); err != nil {
		return ""
	}
	return noticeText
}
