package exitcode

const (
	Success        = 0
	UsageError     = 1
	SourceError    = 2
	DBConnError    = 3
	SinkError      = 4
	ProcessError   = 5
	PartialSuccess = 6
)
