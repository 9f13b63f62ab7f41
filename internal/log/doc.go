// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler masks credentials before they reach the output:
//   - attributes whose key names a credential (access_key, secret_key,
//     password, token and similar)
//   - values that look like credentials (AWS style access keys, bearer
//     tokens, JWTs, private key blocks)
//   - the password part of URLs with embedded user info, which is replaced
//     while the rest of the URL stays readable
//
// Hex digests and archive paths are left untouched so that debug output
// stays useful when comparing archives.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("storage configured",
//	    "endpoint", "minio.internal:9000",
//	    "secret_key", key, // written as ***REDACTED***
//	)
package log
