package domain

import "time"

// CommandOrigin records where a candidate command came from.
type CommandOrigin string

const (
	OriginTranslated CommandOrigin = "translated"
	OriginManual     CommandOrigin = "manual"
)

// Command is an immutable candidate shell command entering the pipeline.
// Raw is what would execute; Normalized is only ever used for matching.
type Command struct {
	Raw        string        `json:"raw"`
	Normalized string        `json:"normalized"`
	Origin     CommandOrigin `json:"origin"`
	CreatedAt  time.Time     `json:"created_at"`
}

// TranslationInput is the payload consumed from the external
// natural-language-to-command translator.
type TranslationInput struct {
	RawCommand    string  `json:"raw_command"`
	Confidence    float64 `json:"confidence"`
	SourceRequest string  `json:"source_request"`
}
