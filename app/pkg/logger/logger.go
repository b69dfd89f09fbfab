package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

var (
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
)

// Init opens a dated log file under logDir and mirrors every line to stdout.
// Logging falls back to the default log package until Init succeeds.
func Init(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	name := fmt.Sprintf("deploypilot_%s.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	out := io.MultiWriter(os.Stdout, f)
	infoLogger = log.New(out, "[INFO] ", log.Ldate|log.Ltime)
	warnLogger = log.New(out, "[WARN] ", log.Ldate|log.Ltime)
	errorLogger = log.New(out, "[ERROR] ", log.Ldate|log.Ltime|log.Lshortfile)
	return nil
}

func emit(l *log.Logger, level, format string, v ...interface{}) {
	if l == nil {
		log.Printf("["+level+"] "+format, v...)
		return
	}
	l.Output(3, fmt.Sprintf(format, v...))
}

func Info(format string, v ...interface{}) {
	emit(infoLogger, "INFO", format, v...)
}

func Warn(format string, v ...interface{}) {
	emit(warnLogger, "WARN", format, v...)
}

func Error(format string, v ...interface{}) {
	emit(errorLogger, "ERROR", format, v...)
}
