package outbound

// Logger defines the interface for the asynchronous logging operations.
// Methods never block on disk I/O; records are handed to a background
// writer and delivery is best-effort.
type Logger interface {
	// logs a single message at the given severity
	Error(msg string)
	Warn(msg string)
	Info(msg string)
	Debug(msg string)

	// logs a message plus the error's textual form as a second record
	// carrying the same timestamp and severity
	ErrorErr(msg string, err error)
	WarnErr(msg string, err error)
	InfoErr(msg string, err error)
	DebugErr(msg string, err error)

	// changes the minimum emitted severity at runtime
	UpdateLevel(level string)

	// drains every queued record, flushes and closes the log file
	Shutdown()
}
