// Package list walks paginated bucket listings.
//
// ListAll accumulates every page into one slice, Stream delivers entries on a channel,
// and Paginator leaves the page loop to the caller. Entries are annotated with the
// bucket they were listed from.
package list
