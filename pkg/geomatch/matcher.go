package geomatch

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/logging"
)

// Direction identifies which dataset supplied the query segments.
type Direction string

// The two matching directions. Completeness statistics are directional
// and need not agree.
const (
	DirectionAToB Direction = "A->B"
	DirectionBToA Direction = "B->A"
)

// Match pairs a query segment with its best admissible candidate. A nil
// Candidate means the segment is unmatched.
type Match struct {
	Query     *Segment
	Candidate *Segment
	Score     Score
	Accepted  bool
}

// MatchResult partitions one dataset's segments into matched and
// unmatched, in segment ID order.
type MatchResult struct {
	Direction Direction
	Matched   []Match
	Unmatched []*Segment
}

// Segments returns the total number of query segments in the result.
func (r *MatchResult) Segments() int {
	return len(r.Matched) + len(r.Unmatched)
}

// Matcher resolves the best admissible candidate per query segment.
type Matcher struct {
	cfg  Config
	eval Evaluator
}

// NewMatcher creates a matcher with the given configuration. The
// configuration must already be validated.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{
		cfg: cfg,
		eval: Evaluator{
			MaxHausdorff:     cfg.MaxHausdorff,
			AngularThreshold: cfg.AngularThreshold,
		},
	}
}

// Match resolves every query segment against the index in parallel.
// Results are sorted by segment ID before return, so the outcome is
// identical regardless of scheduling.
func (m *Matcher) Match(ctx context.Context, queries []*Segment, index *Index, dir Direction) (*MatchResult, error) {
	workers := m.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(queries) {
		workers = len(queries)
	}
	if workers < 1 {
		workers = 1
	}

	results := make(chan Match, len(queries))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(shard int) {
			defer wg.Done()
			for i := shard; i < len(queries); i += workers {
				if ctx.Err() != nil {
					return
				}
				results <- m.resolve(queries[i], index)
			}
		}(w)
	}

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCanceled
	}

	out := &MatchResult{Direction: dir}
	for match := range results {
		if match.Accepted {
			out.Matched = append(out.Matched, match)
		} else {
			out.Unmatched = append(out.Unmatched, match.Query)
		}
	}

	sort.Slice(out.Matched, func(i, j int) bool {
		return out.Matched[i].Query.ID < out.Matched[j].Query.ID
	})
	sort.Slice(out.Unmatched, func(i, j int) bool {
		return out.Unmatched[i].ID < out.Unmatched[j].ID
	})

	logging.Ctx(ctx).Debug().
		Str("direction", string(dir)).
		Int("matched", len(out.Matched)).
		Int("unmatched", len(out.Unmatched)).
		Msg("match resolution complete")

	return out, nil
}

// resolve picks the best admissible candidate for one query segment:
// ascending shape distance, then ascending orientation difference, then
// candidate segment ID. The tie-break keeps results reproducible without
// depending on evaluation order.
func (m *Matcher) resolve(query *Segment, index *Index) Match {
	best := Match{Query: query}

	for _, cand := range index.Candidates(query, m.cfg.BufferDistance) {
		score := m.eval.Score(query, cand)
		if !m.eval.Admissible(score) {
			continue
		}
		if !best.Accepted || better(score, cand.ID, best.Score, best.Candidate.ID) {
			best = Match{Query: query, Candidate: cand, Score: score, Accepted: true}
		}
	}

	return best
}

// better reports whether the scored candidate beats the current best.
func better(s Score, id string, bestScore Score, bestID string) bool {
	if s.Shape != bestScore.Shape {
		return s.Shape < bestScore.Shape
	}
	if s.Orientation != bestScore.Orientation {
		return s.Orientation < bestScore.Orientation
	}
	return id < bestID
}
