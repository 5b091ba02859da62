// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe representation for step keys
and other dotted identifiers used in execution plans.

The format is a dot-separated sequence of segments, e.g. `do_input.compute`
or `fan[2].compute`. The first segment names the solid (with an optional
fan-out index) and the last segment names the step kind.

This package enforces the identifier schema and centralizes all
formatting and parsing logic for step keys.
*/
package nodeid
