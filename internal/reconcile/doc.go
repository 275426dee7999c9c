// Package reconcile removes duplicate leads and re-points references between
// organizations, postings and contacts, inside a fetched batch and against
// records already persisted.
//
// Every function is pure. Inputs are never modified: each call copies the
// records it keeps into a new slice and applies its rewrites to the copies.
// Store lookups are performed by the caller and passed in.
package reconcile
