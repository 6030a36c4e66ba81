// Package builtin tracks the signatures of statically compiled builtin
// function pointers. The module loader fills the registry once at link
// time, either directly or by lowering WIT function types; afterwards a
// builtin's signature never changes, which is what makes builtin
// reflection results cacheable.
package builtin
