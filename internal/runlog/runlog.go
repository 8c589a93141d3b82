// Package runlog appends one JSONL summary event per harness run, so a
// maintainer can see when a pattern set started failing without keeping
// full reports around.
package runlog

import (
	"encoding/json"
	"os"
	"sync"
)

type RunEvent struct {
	Timestamp           string   `json:"timestamp"`
	PatternsDir         string   `json:"patterns_dir"`
	Filter              string   `json:"filter,omitempty"`
	IncludeExperimental bool     `json:"include_experimental,omitempty"`
	Rules               int      `json:"rules"`
	Tests               int      `json:"tests"`
	Passed              int      `json:"passed"`
	Failed              int      `json:"failed"`
	Timeouts            int      `json:"timeouts,omitempty"`
	FailingRules        []string `json:"failing_rules,omitempty"`
	Success             bool     `json:"success"`
}

type Logger struct {
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Logger{file: file}, nil
}

func (l *Logger) Log(event RunEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
