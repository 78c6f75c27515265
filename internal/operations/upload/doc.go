// Package upload writes objects with single PutObject requests.
//
// Bodies that cannot seek are buffered in memory so the request can be signed
// and retried by the SDK. The content type is detected from the first bytes of
// the body when the caller does not set one.
package upload
