// Package symtab compresses dictionary-container bodies with a small
// learned symbol table: up to 255 byte strings of one to eight bytes, each
// replaced by a single-byte code, with an escape pair for everything else.
//
// Serialized dictionaries are repetitive in a very particular way: the
// alphabet body is a run of short tag names sharing prefixes and the
// transducer bodies are runs of small delta-coded integers. A table
// trained once over those bodies captures the handful of byte strings
// that dominate them, and the container stores that table (a couple of
// hundred bytes) next to the compressed payloads.
//
// Training iterates a few merge rounds: tokenize the sample with the
// symbols learned so far, score every token and every adjacent-token join
// by the input bytes it covers, keep the best 255. Starting from bare
// literals this grows pair symbols, then four-byte and eight-byte ones,
// which is as deep as tag names and delta runs reward.
//
// A trained table round-trips any byte stream, including bytes it never
// saw: those cost an escape byte plus the literal, so the worst case is
// 2x expansion on data the table knows nothing about. Decoding is a plain
// code-to-bytes lookup and never fails on corrupt input.
//
//	tbl := symtab.Train(bodies)
//	compressed := tbl.EncodeAll(body)
//	original := tbl.DecodeAll(compressed)
//
//	data, _ := tbl.MarshalBinary()
//	var tbl2 symtab.Table
//	tbl2.UnmarshalBinary(data)
package symtab
