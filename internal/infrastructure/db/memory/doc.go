// Package memory provides in-process implementations of the repository
// ports. They back STORAGE_DRIVER=memory for local development and are the
// storage doubles used by service tests. Records are copied on the way in and
// out so callers never share state with the store.
package memory
