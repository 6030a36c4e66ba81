// Package table implements the process-wide closure slot registry:
// allocation, signature/user-data binding, idempotent release, and
// read-only lookup. Allocate, Prepare and Free are serialized by a
// table lock; Lookup takes a read lock and hands out immutable binding
// records, so reflection and invocation run concurrently with each
// other and never see a partially written binding.
package table
