// Package analysers groups the text analysis stages of the collection pipeline.
//
// Each sub-package builds its keyword and pattern tables once, at construction,
// and never mutates them afterwards, so a single analyser value can be shared
// between workers:
//
//   - content: post-operative relevance, quality and instruction snippets
//   - procedure: procedure category scoring and procedure detail extraction
//   - timeline: dated recovery instructions, schedules and milestones
//
// Analysers depend only on the domain package and textutil helpers.
package analysers
