package ports

import "github.com/jvlcode/screen-recorder/pkg/log"

// Logger is the structured logger used by the application layer.
type Logger = log.Logger

// Field is a structured logging key-value pair.
type Field = log.Field

// Field constructors re-exported for the application layer.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Strings  = log.Strings
)
