// Package copy performs server-side object copies.
package copy
