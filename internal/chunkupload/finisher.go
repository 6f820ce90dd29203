package chunkupload

import "context"

// finisher issues the session-finish POST once the dispatcher reports every
// chunk complete. Unlike the dispatcher, a finish attempt is not retried or
// counted — a failure here is terminal (spec §7, FinishFailed): the engine
// surfaces it as an error event and stops, and Retry has no effect on it.
type finisher struct {
	poster Poster
	cfg    *Config
}

func newFinisher(poster Poster, cfg *Config) *finisher {
	return &finisher{poster: poster, cfg: cfg}
}

// finish POSTs the session-finish request and returns the decoded response
// body, or a FinishFailed error.
func (f *finisher) finish(ctx context.Context, meta *FileMeta) (any, error) {
	resp, err := f.poster.Post(ctx, PostRequest{
		URL:         f.cfg.GetChunkFinishURL(meta),
		Body:        jsonReader(meta.Raw),
		ContentType: "application/json",
		ContentLen:  -1,
		Headers:     f.cfg.headers(),
	})
	if err != nil {
		return nil, wrapFinishErr(err)
	}

	return resp.Decoded, nil
}
