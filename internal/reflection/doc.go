// Package reflection holds the pure scheduling and summarising rules behind
// reflection questions: when questions are due, which question is asked, and
// how the collected answers are condensed when a capsule is revealed.
//
// Nothing in this package performs I/O or reads the clock; callers pass time in.
package reflection
