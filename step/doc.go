// Package step reads and writes the ISO 10303-21 clear text encoding
// ("STEP physical file") used by IFC models.
//
// Decoding is streaming: the header is parsed first and each DATA section
// instance is handed to a callback, so the caller decides where entities are
// kept. Complex (multi-leaf) entity instances are not supported.
//
// String literals are unescaped only for doubled apostrophes; the \X\, \X2\
// and \S\ control directives are kept verbatim so that a decode/encode round
// trip reproduces them byte for byte.
package step
