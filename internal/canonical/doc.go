// Package canonical implements RFC 8785 style canonical JSON and
// domain-separated SHA-256 hashing.
//
// Canonical bytes are the basis of event digests: the same collection
// always serializes to the same bytes, whichever worker produced it and
// whatever map iteration order Go picked.
//
// Rules:
//   - Object keys are sorted by UTF-16 code units (not UTF-8 bytes)
//   - Strings are NFC normalized; only quote, backslash and control
//     characters are escaped
//   - Numbers use the shortest round-trip form; NaN and Inf are rejected
//   - null is rejected
package canonical
