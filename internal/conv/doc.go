// Package conv converts between integer widths with bounds checks.
//
// The grid codec stores counts and lengths as u32 and the payload length as
// u64. Values crossing that boundary go through this package so that an
// oversized grid fails to encode and a hostile header fails to decode
// instead of wrapping around.
package conv
