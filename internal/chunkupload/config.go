package chunkupload

// Config is the engine's external configuration surface (spec §6,
// UploadChunksConfig). FileName/FileSize/LastUpdated are the fields the
// Opener echoes in the session-open request body.
type Config struct {
	FileName    string
	FileSize    int64
	LastUpdated int64 // unix millis, as sent in the session-open body

	// GetHeaders returns the headers added to every request the engine
	// issues, evaluated fresh each time so a bearer token refreshed
	// mid-upload (sessions can run for a long time) is picked up without
	// restarting the engine. A nil GetHeaders means no extra headers.
	GetHeaders func() map[string]string

	// AutoStart, when true, causes the engine to fire Start at construction
	// instead of waiting for an explicit Start call. It is a plain bool with
	// no defaulting: a Config that leaves it unset waits for Start.
	AutoStart bool

	// GetChunkStartURL returns the session-open endpoint.
	GetChunkStartURL func() string

	// GetChunkURL returns the endpoint for chunk index, given the FileMeta
	// returned by session-open.
	GetChunkURL func(fm *FileMeta, index uint32) string

	// GetChunkFinishURL returns the session-finish endpoint, given FileMeta.
	GetChunkFinishURL func(fm *FileMeta) string
}

// headers evaluates GetHeaders, tolerating a nil callback.
func (c *Config) headers() map[string]string {
	if c.GetHeaders == nil {
		return nil
	}

	return c.GetHeaders()
}
