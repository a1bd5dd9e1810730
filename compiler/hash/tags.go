package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the syntax hashing format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Literal values
	TagInt64Lit   byte = 0x01
	TagUint64Lit  byte = 0x02
	TagFloat64Lit byte = 0x03
	TagBoolLit    byte = 0x04
	TagUnitLit    byte = 0x05

	// Operators
	TagInfix  byte = 0x10
	TagPrefix byte = 0x11

	// Statements
	TagExprStmt byte = 0x20
	TagBlock    byte = 0x21
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagInt64Lit, TagUint64Lit, TagFloat64Lit, TagBoolLit, TagUnitLit,
	TagInfix, TagPrefix,
	TagExprStmt, TagBlock,
}
