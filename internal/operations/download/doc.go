// Package download reads objects from the storage service.
// Bodies are streamed through pooled buffers to writers, files or memory.
package download
