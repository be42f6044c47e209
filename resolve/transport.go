package resolve

import "context"

// Transport is the external collaborator that moves bytes for a repository
// URL. Implementations translate protocol-specific failures (HTTP status
// codes, TLS errors) into the caller's retry/error decisions; Transport
// itself just reports success or failure.
type Transport interface {
	// Peek reports whether url exists without downloading its body.
	Peek(ctx context.Context, url string) (bool, error)

	// Get downloads url into dataPath, resuming from resumeOffset bytes
	// if the server and a prior partial download support it (resumeOffset
	// of 0 always performs a full download). It returns the response
	// headers and any checksum values the server advertised.
	Get(ctx context.Context, url, dataPath string, resumeOffset int64) (headers map[string][]string, checksums map[string]string, err error)

	// Put uploads the file at path to url.
	Put(ctx context.Context, url, path string) error
}
