// Package dispatch performs signature reflection and dynamic
// invocation over the two function-pointer universes: builtins with
// build-time signatures and closures bound through the table. Callers
// hand it raw guest buffers; dispatch validates the ranges through the
// memory guard, marshals exactly the bytes the bound signature calls
// for, and makes a single foreign call into the backing routine.
package dispatch
