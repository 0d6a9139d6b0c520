// Package records persists the durable video record that the pipeline moves
// through its lifecycle.
//
// Two drivers implement Store: SQLite (modernc, embedded schema with a
// schema_version guard) for single-host runs, and PostgreSQL through a pgx
// connection pool for shared deployments. Both enforce the same status
// transition table and write every artifact key in one statement so readers
// never observe a partially completed record.
package records
