// Package marshal packs and unpacks typed primitive values to and from
// flat byte buffers. Buffers are densely packed in signature order with
// no padding; all multi-byte values are little-endian. The package is
// pure and holds no shared state, so it is safe for unsynchronized
// concurrent use.
package marshal
