// Package types defines the Archive interface, the version chain model
// (VersionEntry, DeltaPatch, Chain, LegacyEntry), documents, migration
// reports, and the standard errors for inkwell.
package types
