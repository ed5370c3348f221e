// Package barcode encodes and decodes 64-bit particle barcodes.
//
// A barcode packs five provenance fields into one unsigned integer:
//
//	bits 52-63  vertex      0xfff0000000000000
//	bits 36-51  primary     0x000ffff000000000
//	bits 24-35  generation  0x0000000fff000000
//	bits 12-23  secondary   0x0000000000fff000
//	bits  0-11  process     0x0000000000000fff
//
// The layout is bit-exact and shared with every persisted particle id, so
// external readers must decode with these masks.
//
// # Overflow
//
// A value that does not fit its field is rejected with an *OverflowError
// under the default Reject policy. The Truncate policy masks the value to
// the field width instead; it exists for reproducing ids written by older
// masking encoders and never lets one field bleed into another.
//
// Barcodes are values. New ids are derived from existing ones through the
// codec (With, Derive), never by bit manipulation outside this package.
package barcode
