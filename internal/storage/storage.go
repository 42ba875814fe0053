package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const evidenceFolder = "bukti"

var ErrTooLarge = errors.New("evidence file exceeds size limit")

// Upload is an evidence file received with a complaint.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// EvidenceStore persists complaint evidence files and returns the stored path.
type EvidenceStore interface {
	Save(ctx context.Context, upload Upload) (string, error)
	Delete(ctx context.Context, path string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	safe := strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "._")
	if safe == "" {
		return "bukti"
	}
	if len(safe) > 100 {
		safe = safe[len(safe)-100:]
	}
	return safe
}

// ObjectPath builds bukti/<yyyymmddHHMMSS>-<8 hex>-<name>.
func ObjectPath(now time.Time, filename string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s-%s-%s", evidenceFolder, now.Format("20060102150405"), suffix, sanitizeFilename(filename))
}
