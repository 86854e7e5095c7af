// Package docstore executes queries against JSON documents kept in SQLite.
//
// Every collection lives in one documents table; each row holds the
// canonical JSON of one record together with its id, the string form of
// its identity. Queries are translated to SQL conditions over the JSON:
//
//	match(field(engine.type), eq(param(0)))
//	    json_extract(doc, ?) IS ?            args: "$.engine.type", "gas"
//
//	elemMatch(field(drivers), match(field(name), eq(static("Ann"))))
//	    EXISTS (SELECT 1 FROM json_each(doc, ?) AS e1
//	            WHERE json_extract(e1.value, ?) IS ?)
//
// Values and paths are always bound parameters. Reads are ordered by
// insertion sequence, so FindAll and FindOne agree with the in-memory
// engine on the same data.
//
// Not every query translates. Selectors must read the stored document, and
// names that only exist as getters have no stored form; both fail with
// UNSUPPORTED_QUERY before any SQL runs.
package docstore
