// Package compress wraps grid files in LZ4 or zstd frames.
//
// Compression is transparent: writers pick the algorithm explicitly or from
// the file extension (".lz4", ".zst"), readers recognize the frame magic
// and pass anything else through unchanged.
//
//	data, _ := compress.Compress(raw, compress.FromName("grid.pgrd.lz4"))
//	raw, t, _ := compress.Decompress(data) // t == compress.LZ4
package compress
