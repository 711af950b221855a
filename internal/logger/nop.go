package logger

// NewNop returns a Logger that discards everything. Tests pass it wherever a
// component wants a logger but the output is irrelevant.
func NewNop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}

// Fatal discards the message and does not exit.
func (nopLogger) Fatal(string, ...Field) {}

func (l nopLogger) With(...Field) Logger { return l }
func (nopLogger) Sync() error            { return nil }
