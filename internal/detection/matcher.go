package detection

import (
	"image"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/ironsheep/rrn-masker/internal/ocr"
)

// idPattern is the strict shape a corrected candidate must have.
var idPattern = regexp.MustCompile(`^\d{6}-\d{7}$`)

// MaxJoinLimit caps Options.MaxJoin. Longer runs join unrelated words.
const MaxJoinLimit = 3

// Projector maps a rectangle from OCR-image space to original-image space.
// *imaging.Preprocessed implements it.
type Projector interface {
	ToOriginal(r image.Rectangle) image.Rectangle
}

// Match is a validated resident-registration number.
type Match struct {
	// Text is the corrected ID, always DDDDDD-DDDDDDD.
	Text string `json:"-"`

	// Raw is the joined fragment text the ID was found in, before correction.
	Raw string `json:"-"`

	// Bounds is the union of the source fragment boxes in original-image space.
	Bounds image.Rectangle `json:"bounds"`

	// Sources are the indices of the contributing fragments.
	Sources []int `json:"sources"`

	// Confidence is the mean OCR confidence of the sources.
	Confidence float64 `json:"confidence"`

	// Corrections is the number of confusion substitutions applied.
	Corrections int `json:"corrections"`

	// Count is how many IDs were read inside Bounds, at least 1. Text is the
	// first of them.
	Count int `json:"count"`
}

// LogValue keeps the ID itself out of logs.
func (m Match) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bounds", m.Bounds.String()),
		slog.Any("sources", m.Sources),
		slog.Float64("confidence", m.Confidence),
		slog.Int("corrections", m.Corrections),
		slog.Int("count", m.Count),
	)
}

// Options tunes candidate generation and correction.
type Options struct {
	// MaxJoin is the longest run of adjacent fragments joined into one
	// candidate (1 disables joining, at most MaxJoinLimit).
	MaxJoin int

	// VerticalTolerance is the largest allowed difference between two
	// fragments' vertical centres, as a fraction of the taller one's height.
	VerticalTolerance float64

	// MaxGapRatio is the largest horizontal gap between two fragments, as a
	// multiple of their mean height.
	MaxGapRatio float64

	// MaxOverlapRatio is the largest horizontal overlap between two fragments,
	// as a multiple of their mean height.
	MaxOverlapRatio float64

	// MaxCorrections is the most confusion substitutions accepted in one ID.
	MaxCorrections int

	// Confusions is the substitution table. The zero value selects
	// DefaultConfusions.
	Confusions ConfusionTable
}

// DefaultOptions returns pair joining, tolerant alignment and up to three
// substitutions.
func DefaultOptions() Options {
	return Options{
		MaxJoin:           2,
		VerticalTolerance: 0.5,
		MaxGapRatio:       1.5,
		MaxOverlapRatio:   0.5,
		MaxCorrections:    3,
		Confusions:        DefaultConfusions(),
	}
}

// Matcher finds resident-registration numbers in OCR fragments.
// It holds no per-call state and is safe for concurrent use.
type Matcher struct {
	opts   Options
	table  ConfusionTable
	logger *slog.Logger
}

// NewMatcher builds a matcher. Zero or out-of-range fields fall back to
// DefaultOptions values; MaxJoin is capped at MaxJoinLimit.
func NewMatcher(opts Options) *Matcher {
	def := DefaultOptions()
	if opts.MaxJoin < 1 {
		opts.MaxJoin = def.MaxJoin
	}
	if opts.MaxJoin > MaxJoinLimit {
		opts.MaxJoin = MaxJoinLimit
	}
	if opts.VerticalTolerance <= 0 {
		opts.VerticalTolerance = def.VerticalTolerance
	}
	if opts.MaxGapRatio <= 0 {
		opts.MaxGapRatio = def.MaxGapRatio
	}
	if opts.MaxOverlapRatio < 0 {
		opts.MaxOverlapRatio = def.MaxOverlapRatio
	}
	if opts.MaxCorrections < 0 {
		opts.MaxCorrections = def.MaxCorrections
	}
	if opts.Confusions.Digits == nil && opts.Confusions.Hyphens == nil {
		opts.Confusions = def.Confusions
	}

	return &Matcher{
		opts:   opts,
		table:  opts.Confusions.normalized(),
		logger: slog.Default().With("component", "matcher"),
	}
}

// Options returns the effective options.
func (m *Matcher) Options() Options {
	return m.opts
}

// candidate is a fragment or a run of adjacent fragments.
type candidate struct {
	raw        string
	bounds     image.Rectangle
	sources    []int
	confidence float64

	// text is the normalized text of the run. spaced[k] reports whether
	// whitespace preceded text[k]; ends[j] is where source j's runes end.
	text   []rune
	spaced []bool
	ends   []int
}

// FindMatches returns every ID found in fragments, in reading order.
//
// Boxes are mapped through proj (identity when nil). A run of fragments only
// yields a match when some ID window touches every fragment in it, so a
// neighbouring label never widens an ID's box. All IDs inside a match's box
// come back as one Match whose Count says how many were read. When two
// matches overlap, the one holding more IDs wins, then the one with higher
// confidence, then the one built from fewer fragments. The result is never
// nil.
func (m *Matcher) FindMatches(fragments []ocr.Fragment, proj Projector) []Match {
	found := make([]Match, 0)

	for _, c := range m.candidates(fragments) {
		windows := m.scan(c.text, c.spaced)
		if !c.anySpans(windows) {
			continue
		}

		corrections := 0
		for _, w := range windows {
			corrections += w.corrections
		}

		bounds := c.bounds
		if proj != nil {
			bounds = proj.ToOriginal(bounds)
		}
		if bounds.Empty() {
			continue
		}

		found = append(found, Match{
			Text:        windows[0].text,
			Raw:         c.raw,
			Bounds:      bounds,
			Sources:     c.sources,
			Confidence:  c.confidence,
			Corrections: corrections,
			Count:       len(windows),
		})
	}

	matches := resolveOverlaps(found)

	m.logger.Debug("pattern matching complete",
		"fragments", len(fragments),
		"candidates_matched", len(found),
		"matches", len(matches))

	return matches
}

// candidates returns every fragment plus every run of 2..MaxJoin
// sequence-adjacent fragments that sit on the same line close together.
func (m *Matcher) candidates(fragments []ocr.Fragment) []candidate {
	out := make([]candidate, 0, len(fragments)*m.opts.MaxJoin)

	for i := range fragments {
		var (
			raw     strings.Builder
			text    []rune
			spaced  []bool
			ends    []int
			bounds  image.Rectangle
			sources []int
			confSum float64
		)
		for k := 0; k < m.opts.MaxJoin && i+k < len(fragments); k++ {
			f := fragments[i+k]
			if k > 0 && !m.adjacent(fragments[i+k-1], f) {
				break
			}

			raw.WriteString(f.Text)
			t, sp := normalize(f.Text)
			text = append(text, t...)
			spaced = append(spaced, sp...)
			ends = append(ends, len(text))
			if k == 0 {
				bounds = f.Bounds
			} else {
				bounds = bounds.Union(f.Bounds)
			}
			sources = append(sources, i+k)
			confSum += f.Confidence

			out = append(out, candidate{
				raw:        raw.String(),
				bounds:     bounds,
				sources:    append([]int(nil), sources...),
				confidence: confSum / float64(len(sources)),
				text:       append([]rune(nil), text...),
				spaced:     append([]bool(nil), spaced...),
				ends:       append([]int(nil), ends...),
			})
		}
	}

	return out
}

// anySpans reports whether one of windows touches every source of c. When
// none does, a shorter run reports the same IDs with a tighter box.
func (c candidate) anySpans(windows []window) bool {
	for _, w := range windows {
		if c.spans(w.start, w.start+IDLength) {
			return true
		}
	}
	return false
}

// spans reports whether the rune range [start, end) touches every source of c.
func (c candidate) spans(start, end int) bool {
	begin := 0
	for _, e := range c.ends {
		if begin >= end || e <= start {
			return false
		}
		begin = e
	}
	return true
}

// adjacent reports whether b continues a on the same text line.
func (m *Matcher) adjacent(a, b ocr.Fragment) bool {
	ha, hb := float64(a.Bounds.Dy()), float64(b.Bounds.Dy())
	if ha <= 0 || hb <= 0 {
		return false
	}

	cya := float64(a.Bounds.Min.Y+a.Bounds.Max.Y) / 2
	cyb := float64(b.Bounds.Min.Y+b.Bounds.Max.Y) / 2
	if math.Abs(cya-cyb) > m.opts.VerticalTolerance*math.Max(ha, hb) {
		return false
	}

	mean := (ha + hb) / 2
	gap := float64(b.Bounds.Min.X - a.Bounds.Max.X)
	return gap <= m.opts.MaxGapRatio*mean && gap >= -m.opts.MaxOverlapRatio*mean
}

// window is one ID read from a candidate, starting at rune start.
type window struct {
	start       int
	text        string
	corrections int
}

// scan returns every non-overlapping ID-shaped window in text. A window
// glued to another digit is skipped so a longer digit run never yields an ID;
// whitespace in the source separates digit runs.
func (m *Matcher) scan(text []rune, spaced []bool) []window {
	var out []window

	for i := 0; i+IDLength <= len(text); i++ {
		if i > 0 && isDigit(text[i-1]) && !spaced[i] {
			continue
		}
		if end := i + IDLength; end < len(text) && isDigit(text[end]) && !spaced[end] {
			continue
		}

		corrected, n, ok := m.table.Correct(string(text[i : i+IDLength]))
		if !ok || n > m.opts.MaxCorrections {
			continue
		}
		if !idPattern.MatchString(corrected) {
			continue
		}
		out = append(out, window{start: i, text: corrected, corrections: n})
		i += IDLength - 1
	}

	return out
}

// normalize folds full-width and compatibility forms (NFKC) and drops
// whitespace, so "９０１２３１ - １２３４５６７" reads as one ID. spaced[k]
// reports whether whitespace came right before the k-th kept rune.
func normalize(s string) (text []rune, spaced []bool) {
	gap := false
	for _, r := range norm.NFKC.String(s) {
		if unicode.IsSpace(r) {
			gap = true
			continue
		}
		text = append(text, r)
		spaced = append(spaced, gap)
		gap = false
	}
	return text, spaced
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// resolveOverlaps applies the tie-break and duplicate rules, then restores
// reading order.
func resolveOverlaps(found []Match) []Match {
	ranked := make([]Match, len(found))
	copy(ranked, found)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return len(ranked[i].Sources) < len(ranked[j].Sources)
	})

	kept := make([]Match, 0, len(ranked))
	for _, candidate := range ranked {
		overlapped := false
		for _, k := range kept {
			if regionsOverlap(candidate.Bounds, k.Bounds) {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, candidate)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Sources[0] < kept[j].Sources[0]
	})
	return kept
}

// regionsOverlap checks if two rectangles share any pixel
func regionsOverlap(a, b image.Rectangle) bool {
	return a.Min.X < b.Max.X && a.Max.X > b.Min.X && a.Min.Y < b.Max.Y && a.Max.Y > b.Min.Y
}
