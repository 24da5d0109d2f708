package extract

import (
	"context"

	"go.uber.org/zap"
)

// Loader fetches a source and extracts its text.
type Loader struct {
	fetcher   *Fetcher
	extractor *Extractor
	logger    *zap.Logger
}

// NewLoader combines a fetcher and an extractor. logger may be nil.
func NewLoader(fetcher *Fetcher, extractor *Extractor, logger *zap.Logger) *Loader {
	return &Loader{fetcher: fetcher, extractor: extractor, logger: logger}
}

// Load returns the extracted text of source. Failures wrap models.ErrExtraction.
func (l *Loader) Load(ctx context.Context, source string) (string, error) {
	payload, err := l.fetcher.Fetch(ctx, source)
	if err != nil {
		return "", err
	}
	format := DetectFormat(payload.Content, payload.ContentType, payload.Name)
	if l.logger != nil {
		l.logger.Debug("extract fetched source",
			zap.String("source_url", source),
			zap.String("format", string(format)),
			zap.Int("bytes", len(payload.Content)),
		)
	}
	return l.extractor.ExtractBytes(payload.Content, format)
}
