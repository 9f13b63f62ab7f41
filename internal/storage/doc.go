// Package storage uploads comparison results to S3-compatible object storage.
package storage
