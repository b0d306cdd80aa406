package conflation

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/logging"
)

// Verdict is a human decision on a pending feature.
type Verdict string

// The two manual verdicts.
const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// ParseVerdict parses a verdict, accepting common spellings.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accepted", "accept", "yes", "y":
		return VerdictAccepted, nil
	case "rejected", "reject", "no", "n":
		return VerdictRejected, nil
	}
	return "", fmt.Errorf("%w: verdict %q", errors.ErrInvalidInput, s)
}

// ReviewFile is a batch of manual verdicts keyed by origin-qualified
// decision ID, fed to the engine from a YAML document:
//
//	verdicts:
//	  "A:way/41": accepted
//	  "B:path-7": rejected
type ReviewFile struct {
	Verdicts map[string]string `yaml:"verdicts"`
}

// LoadReviewFile reads a verdicts file.
func LoadReviewFile(path string) (*ReviewFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()
	return ReadReviewFile(f)
}

// ReadReviewFile parses a verdicts document from r.
func ReadReviewFile(r io.Reader) (*ReviewFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "reviews", err)
	}

	var rf ReviewFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, errors.NewParseError("yaml", "reviews", "invalid verdicts document", err)
	}
	return &rf, nil
}

// ReviewOutcome summarizes applying a batch of verdicts.
type ReviewOutcome struct {
	Resolved int
	Skipped  []string
}

// Apply resolves pending decisions against the engine. Verdicts for
// unknown or already-resolved decisions are skipped and reported, not
// fatal; the remaining pending features stay pending.
func (rf *ReviewFile) Apply(e *Engine) (*ReviewOutcome, error) {
	ids := make([]string, 0, len(rf.Verdicts))
	for id := range rf.Verdicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	outcome := &ReviewOutcome{}
	for _, id := range ids {
		verdict, err := ParseVerdict(rf.Verdicts[id])
		if err != nil {
			return nil, fmt.Errorf("verdict for %s: %w", id, err)
		}

		if err := e.Resolve(id, verdict); err != nil {
			logging.Warn().Str("decision", id).Err(err).Msg("verdict skipped")
			outcome.Skipped = append(outcome.Skipped, id)
			continue
		}
		outcome.Resolved++
	}
	return outcome, nil
}

// PendingTemplate renders the engine's pending queue as a verdicts
// document skeleton for a reviewer to fill in.
func PendingTemplate(e *Engine) ([]byte, error) {
	pending := e.Pending()

	verdicts := make(map[string]string, len(pending))
	for _, d := range pending {
		verdicts[d.ID] = ""
	}

	out, err := yaml.Marshal(ReviewFile{Verdicts: verdicts})
	if err != nil {
		return nil, errors.NewParseError("yaml", "reviews", "marshaling pending template", err)
	}
	return out, nil
}
