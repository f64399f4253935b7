package server

import "github.com/raysh454/trygglink/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// MaxUploadBytes caps file-scan request bodies. 0 means 32 MiB.
	MaxUploadBytes int64

	// TrustForwardedHeaders takes the client address from X-Forwarded-For,
	// X-Real-IP or True-Client-IP. Enable only behind a proxy that sets them.
	TrustForwardedHeaders bool

	// AllowedOrigins limits which browser origins may open the scan feed
	// websocket. Empty allows any origin.
	AllowedOrigins []string

	Logger logging.Logger
}

const defaultMaxUploadBytes = 32 << 20
