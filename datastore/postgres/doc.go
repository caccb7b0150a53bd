// Package postgres implements the persistence interfaces over a PostgreSQL
// database.
//
// The expected schema, in brief:
//
//	vulnerability(id, cve, description, cvss_score, published, modified,
//	    refs text[], configurations jsonb, tsv tsvector)
//	vuln_identifier(vuln_id, vendor, product, version_expr)
//	keyword_identifier(keyword, identifier)
//	identifier_popularity(identifier, rank)
//	identifier_embedding(identifier, embedding vector)
//	enrichment_cache(key, value bytea, expires_at)
//
// The identifier_embedding table requires the pgvector extension.
package postgres
