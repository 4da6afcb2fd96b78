package persist

import (
	"encoding/json"
	"fmt"
	"os"
)

// AttemptLog appends one JSON line per attempted figure. The line count of a
// finished log equals the run's attempt count; a run owns its log file and
// starts it fresh.
type AttemptLog struct {
	f   *os.File
	enc *json.Encoder
}

func OpenAttemptLog(path string) (*AttemptLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open attempt log: %w", err)
	}
	return &AttemptLog{f: f, enc: json.NewEncoder(f)}, nil
}

func (l *AttemptLog) Append(r Result) error {
	if err := l.enc.Encode(r); err != nil {
		return fmt.Errorf("append attempt record: %w", err)
	}
	return nil
}

func (l *AttemptLog) Close() error {
	return l.f.Close()
}
