// Package dataset reads and writes scheduling inputs: a starting head
// position and a batch of tape requests.
//
// # Formats
//
// Three encodings are supported and selected by file extension:
//
//   - Text (.txt and anything unrecognised): the bracketed case format used
//     by the drive test harness.
//   - JSON (.json)
//   - TOML (.toml)
//
// The text format is a sequence of section markers, each followed by its
// values on bracketed lines:
//
//	["head info"]
//	[1,20,0]
//	["io count"]
//	[2]
//	["io array"]
//	[1,3,1000,1200]
//	[2,0,40,90]
//
// The head line is wrap, lpos and status (0 static, 1 reading). Each request
// line is id, wrap, start lpos and end lpos.
//
// JSON and TOML share one shape:
//
//	{
//	  "name": "case_1",
//	  "head": {"wrap": 1, "lpos": 20, "status": 0},
//	  "count": 2,
//	  "requests": [
//	    {"id": 1, "wrap": 3, "start_lpos": 1000, "end_lpos": 1200},
//	    {"id": 2, "wrap": 0, "start_lpos": 40, "end_lpos": 90}
//	  ]
//	}
//
// "count" is optional in JSON and TOML and defaults to the number of
// requests.
//
// # Validation
//
// Readers report syntax problems with code INVALID_FORMAT. They keep the
// declared request count as written, so a file that declares five requests
// but lists three loads successfully and is rejected later by the scheduler
// with INVALID_INPUT.
package dataset
