// Package hash provides hardware-accelerated checksums for data integrity.
//
// # CRC32-Castagnoli (CRC32C)
//
// Cached bitmap payloads are framed with a CRC32C checksum of their
// uncompressed serialization:
//
//   - Hardware acceleration on x86 (SSE4.2) and ARM (CRC extension)
//   - Better error detection than CRC32-IEEE
//
// # Usage
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
