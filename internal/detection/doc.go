// Package detection finds Korean resident-registration numbers in OCR output.
//
// # Candidates
//
// OCR often splits an ID at the hyphen, so the matcher considers every
// fragment on its own and every run of sequence-adjacent fragments (pairs by
// default) that share a text line: vertical centres within
// Options.VerticalTolerance of the taller fragment's height, and a horizontal
// gap no larger than Options.MaxGapRatio times the mean height. Joined text
// closes the gap.
//
// # Correction
//
// Candidate text is NFKC-normalized and stripped of whitespace. Each 14-rune
// window whose neighbours are not digits is mapped slot by slot through a
// ConfusionTable: digit slots accept digits and known misreads ('O' for 0,
// 'l' for 1, ...), the hyphen slot accepts dash variants. A window needing more
// than Options.MaxCorrections substitutions is rejected, and the result must
// match ^\d{6}-\d{7}$ exactly.
//
// # Overlaps
//
// Matches whose boxes overlap compete: the higher mean confidence wins, and on
// a tie the match built from fewer fragments. Identical overlapping matches
// collapse into one. Results are returned in reading order.
//
// # Coordinate System
//
// Fragment boxes are in the space of the image the OCR engine saw. A Projector
// maps match boxes back to the original image; image.Rectangle semantics apply
// (Min inclusive, Max exclusive).
//
// Match.Text holds the ID in the clear. It is excluded from JSON and from
// slog output (Match implements slog.LogValuer).
package detection
