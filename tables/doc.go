// Package tables defines the tables a traced execution produces and their
// element types.
//
//	InstructionTable  static instructions, keyed by (fid, iid)
//	InitMemoryTable   initial heap cells and globals
//	ExecutionTable    recorded steps, EID = position + 1
//	FrameTable        call frames derived from frame push/pop
//
// The tables are append-only; readers get copies through Entries.
package tables
