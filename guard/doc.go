// Package guard validates guest-supplied address ranges before the
// host dereferences them. Linear checks against the current size of a
// linear memory (the hosting VM's capability); Regions checks against
// an explicit allow-list for hosts with partial mappings. Both are
// side-effect free. The package also carries the wazero memory
// adapters and a byte-slice backed Buffer memory for engine-less hosts
// and tests.
package guard
