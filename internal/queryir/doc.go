// Package queryir defines the query descriptor: the structured shape of a
// list request (select / order / limit / offset) that the SQL backend
// compiles.
//
// ARCHITECTURE:
//
//	[query string] → Parse → [Descriptor] → querysql.Compile → [SQL + params]
//	                              ↓
//	                          Validate → warnings
//
// The query string syntax follows PostgREST:
//
//	select=id,my_artist:artist,album(title)   alias:column, nested groups
//	order=title.desc,width.asc.nullsfirst     direction and nulls placement
//	limit=512&offset=9321                     non-negative integers
//
// SEALED INTERFACES:
//
// Field is sealed with a marker method. Only Column and Nested implement
// it, so backends can switch exhaustively:
//
//	switch f := field.(type) {
//	case Column:
//	    // column[ as alias]
//	case Nested:
//	    // namespaced inner columns
//	}
//
// NESTED SELECTIONS:
//
// A Nested field only namespaces output keys ("artist.name"). No join
// path is inferred, so the related relation must already be in scope for
// the SQL to run. Validate flags every nested group.
package queryir
