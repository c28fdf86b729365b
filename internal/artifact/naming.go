package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/CivicActions/Drupal-ACR/internal/services"
)

// Artifact prefixes, one per stage output.
const (
	PrefixIssues      = "drupal_issues"
	PrefixSummaries   = "issue_summaries"
	PrefixAssessments = "criterion_assessments"
	PrefixReport      = "openacr"

	ExtCSV  = "csv"
	ExtYAML = "yaml"

	timestampLayout = "2006-01-02_15-04"
)

// Kind pairs a prefix with its file extension.
type Kind struct {
	Prefix string
	Ext    string
}

var (
	Issues      = Kind{Prefix: PrefixIssues, Ext: ExtCSV}
	Summaries   = Kind{Prefix: PrefixSummaries, Ext: ExtCSV}
	Assessments = Kind{Prefix: PrefixAssessments, Ext: ExtCSV}
	Report      = Kind{Prefix: PrefixReport, Ext: ExtYAML}
)

// Kinds lists the artifact kinds in stage order.
var Kinds = []Kind{Issues, Summaries, Assessments, Report}

// Name returns the artifact file name for the given time.
func (k Kind) Name(now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", k.Prefix, now.Format(timestampLayout), k.Ext)
}

// Path joins dir with the artifact name for now.
func (k Kind) Path(dir string, now time.Time) string {
	return filepath.Join(dir, k.Name(now))
}

func (k Kind) pattern() string {
	return k.Prefix + "_*." + k.Ext
}

// Timestamp parses the timestamp suffix out of an artifact path.
func (k Kind) Timestamp(path string) (time.Time, bool) {
	base := filepath.Base(path)
	prefix := k.Prefix + "_"
	suffix := "." + k.Ext
	if len(base) != len(prefix)+len(timestampLayout)+len(suffix) {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, base[len(prefix):len(base)-len(suffix)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Latest returns the lexically greatest artifact of kind k in dir. Because the
// timestamp suffix sorts chronologically, this is the most recent run.
func (k Kind) Latest(dir string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), k.pattern())
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", k.pattern(), err)
	}
	candidates := matches[:0]
	for _, match := range matches {
		if _, ok := k.Timestamp(match); ok {
			candidates = append(candidates, match)
		}
	}
	if len(candidates) == 0 {
		return "", services.Wrap(services.ErrNotFound, "artifact", "latest",
			fmt.Sprintf("no %s file in %s", k.pattern(), dir), nil)
	}
	sort.Strings(candidates)
	return filepath.Join(dir, candidates[len(candidates)-1]), nil
}

// Resolve returns explicit when set, verifying it exists, and otherwise the
// latest artifact in dir.
func (k Kind) Resolve(dir, explicit string) (string, error) {
	if explicit == "" {
		return k.Latest(dir)
	}
	info, err := os.Stat(explicit)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "artifact", "resolve",
				fmt.Sprintf("input file %s does not exist", explicit), nil)
		}
		return "", fmt.Errorf("stat %s: %w", explicit, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "artifact", "resolve",
			fmt.Sprintf("input %s is a directory", explicit), nil)
	}
	return explicit, nil
}
