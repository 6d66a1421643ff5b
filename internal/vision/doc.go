// Package vision evaluates recognition conditions against captured
// frames.
//
// Each pipeline node carries a recognition body whose "type" field
// selects the algorithm. Supported types:
//
//   - direct_hit: always matches; the match box is the ROI (or the
//     whole frame). Nodes with no recognition body default to this.
//   - color_match: counts pixels inside the ROI whose RGB values fall
//     within an inclusive lower/upper range; matches when the count
//     reaches the configured threshold.
//
// Evaluation failures (unknown type, malformed body, ROI outside the
// frame) are reported as misses, never as errors, so a broken node
// cannot take down the execution loop.
package vision
