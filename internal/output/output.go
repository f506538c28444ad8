// Package output decides where a composed biodata document is written and
// writes it there.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
)

// DefaultName is used when the subject name is empty after sanitising.
const DefaultName = "biodata"

// MaxNameBytes caps the sanitised name so that the full file name stays
// under the 255 byte limit of common filesystems.
const MaxNameBytes = 200

// reserved are characters that are not allowed in file names on the FAT and
// NTFS filesystems found on removable drives.
const reserved = `/\:*?"<>|`

// Resolver picks the output directory: the first existing mount candidate
// (plus Subfolder), else Fallback.
type Resolver struct {
	Candidates []string
	Subfolder  string
	Fallback   string
}

// NewResolver builds a Resolver from the output section of the config.
func NewResolver(cfg config.OutputConfig) Resolver {
	return Resolver{
		Candidates: append([]string(nil), cfg.MountCandidates...),
		Subfolder:  cfg.Subfolder,
		Fallback:   cfg.FallbackDir,
	}
}

// Choose returns the directory that Resolve would create, without touching
// the filesystem beyond existence checks.
func (r Resolver) Choose() string {
	for _, root := range r.Candidates {
		if root == "" {
			continue
		}
		if fi, err := os.Stat(root); err == nil && fi.IsDir() {
			return filepath.Join(root, r.Subfolder)
		}
	}
	return r.Fallback
}

// Resolve returns the chosen directory, creating it when missing. An
// existing directory is not an error.
func (r Resolver) Resolve() (string, error) {
	dir := r.Choose()
	if dir == "" {
		return "", fmt.Errorf("no output directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return dir, nil
}

// SanitizeName makes a subject name safe to embed in a file name.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(reserved, r) {
			continue
		}
		b.WriteRune(r)
	}
	s := strings.Trim(truncate(strings.Trim(b.String(), " ."), MaxNameBytes), " .")
	if s == "" {
		return DefaultName
	}
	return avoidDeviceName(s)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// avoidDeviceName appends "_" to a stem Windows reserves for devices, such
// as CON or COM1, whether or not an extension follows.
func avoidDeviceName(s string) string {
	stem, rest, _ := strings.Cut(s, ".")
	base := strings.TrimRight(stem, " ")
	if !isDeviceName(base) {
		return s
	}
	out := base + "_" + stem[len(base):]
	if strings.Contains(s, ".") {
		out += "." + rest
	}
	return out
}

func isDeviceName(s string) bool {
	switch strings.ToUpper(s) {
	case "CON", "PRN", "AUX", "NUL":
		return true
	}
	if len(s) == 4 {
		prefix := strings.ToUpper(s[:3])
		return (prefix == "COM" || prefix == "LPT") && s[3] >= '1' && s[3] <= '9'
	}
	return false
}

// FileName returns "<name>_<stamp>.pdf" with name sanitised.
func FileName(name string, stamp int64) string {
	return SanitizeName(name) + "_" + strconv.FormatInt(stamp, 10) + ".pdf"
}

// Write stores data as dir/file. The bytes go to a temp file in dir which is
// then renamed, so the final path never holds a partial document. It returns
// the absolute path of the written file.
func Write(dir, file string, data []byte) (string, error) {
	final, err := filepath.Abs(filepath.Join(dir, file))
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".biodata-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", final, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", final, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod %s: %w", final, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename to %s: %w", final, err)
	}
	return final, nil
}

// Clock hands out millisecond timestamps that strictly increase within one
// process, so two documents for the same subject never share a name.
type Clock struct {
	now  func() time.Time
	last atomic.Int64
}

// NewClock returns a Clock reading now; nil means time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Stamp returns max(now in epoch millis, previous stamp + 1).
func (c *Clock) Stamp() int64 {
	for {
		last := c.last.Load()
		next := c.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
