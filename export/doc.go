// Package export writes recorded trace tables as JSON Lines.
//
// Every line is one object with a "table" field naming the table it
// belongs to: "itable", "imtable", "etable" or "frame". Execution rows
// carry their step under "step", discriminated by "kind".
package export
