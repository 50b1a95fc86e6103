// Package sqlast parses, inspects and formats the SELECT subset of SQL
// that the synthesizer produces and the validation cascade accepts.
//
// The grammar covers single SELECT statements with DISTINCT, FROM with
// INNER/LEFT/RIGHT/FULL/CROSS joins, WHERE, GROUP BY, HAVING, ORDER BY,
// LIMIT and OFFSET. CTEs, set operations, subqueries and window functions
// are rejected with a *ParseError.
package sqlast
