// Package value provides the sealed value model shared by every mathgraph
// package.
//
// This package contains type definitions only. All other internal packages
// import value; value imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: only the types in this package implement it
//   - Floats are allowed (animation steps are fractional), but NaN and
//     infinities are rejected by the canonical encoder
//   - Object keys are iterated through SortedKeys for deterministic output
//   - A *Func is a Value so an invocable can be stored, displayed and bound
//     exactly like a literal
package value
