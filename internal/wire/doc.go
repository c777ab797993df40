// Package wire provides the little-endian payload buffer used by the grid
// codec. Encoding and decoding errors latch on first occurrence so callers
// can check once at the end of a block.
package wire
