// Package model holds the immutable document model: per-character metadata,
// content blocks (flat or linked into a forest), the entity map and the
// content state that aggregates them.
//
// Every value in this package is persistent. Methods that "modify" return a
// new value and leave the receiver untouched; unmodified blocks and the
// entity map are shared by pointer between successive content states, so
// pointer equality is a valid change test for consumers.
//
// Offsets into block text are UTF-16 code units. A block carries exactly one
// CharacterMetadata per code unit.
package model
