// Package hash provides the CRC32-Castagnoli checksums used by the grid
// container header and by object-store uploads.
//
//	sum := hash.CRC32C(payload)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum = h.Sum32()
//
// Go's crc32 package uses hardware instructions where available.
package hash
