// Package operations groups the storage operations s3kit builds on. Each subpackage
// takes the narrow slice of the storage client it needs, classifies remote errors and
// returns s3types results.
package operations
