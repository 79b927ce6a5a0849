package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	logFile    *DailyFile
	errorsFile *DailyFile
	eventsFile *DailyFile
	onLog      func(s string)

	// if true, Verbosef() will log messages
	Verbose bool
)

// DailyFile is a log file that starts a new file every day (UTC)
// named YYYY-MM-DD.txt in Dir.
// All methods are safe to call on nil receiver.
type DailyFile struct {
	Dir string

	mu   sync.Mutex
	day  string
	file *os.File
}

func NewDailyFile(dir string) *DailyFile {
	return &DailyFile{
		Dir: dir,
	}
}

// Path returns path of the file for a given time
func (w *DailyFile) Path(t time.Time) string {
	return filepath.Join(w.Dir, t.UTC().Format("2006-01-02")+".txt")
}

func (w *DailyFile) Write(d []byte) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	day := now.Format("2006-01-02")
	if w.file != nil && w.day != day {
		if err := w.closeLocked(); err != nil {
			return err
		}
	}
	if w.file == nil {
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(w.Path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w.file = f
		w.day = day
	}
	_, err := w.file.Write(d)
	return err
}

func (w *DailyFile) WriteString(s string) error {
	return w.Write([]byte(s))
}

func (w *DailyFile) closeLocked() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.day = ""
	return err
}

func (w *DailyFile) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Sync()
	}
	return w.closeLocked()
}

type Config struct {
	// directory where log files are stored
	// each log type (regular, errors, events) has its own subdirectory
	Dir string
	// called for every Logf() call
	// allows sending logs to other places
	OnLog func(s string)
}

// Init initializes logging to files in config.Dir.
// Without Init, Logf() only prints to stdout and events are dropped.
func Init(config *Config) {
	Close()
	dir := config.Dir
	logFile = NewDailyFile(filepath.Join(dir, "log"))
	errorsFile = NewDailyFile(filepath.Join(dir, "errors"))
	// files are only created when first written to
	eventsFile = NewDailyFile(filepath.Join(dir, "events"))
	onLog = config.OnLog
}

func closeDailyFile(w **DailyFile) {
	(*w).Close()
	*w = nil
}

// Close closes log files
func Close() {
	closeDailyFile(&logFile)
	closeDailyFile(&errorsFile)
	closeDailyFile(&eventsFile)
	onLog = nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Print(s)
	logFile.WriteString(s)
	if onLog != nil {
		onLog(s)
	}
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message along with the callstack.
// It's also written to errors log
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(1)
	s = fmt.Sprintf("%s\n%s\n", strings.TrimSuffix(s, "\n"), cs)
	errorsFile.WriteString(s)
	Logf("%s", s)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		// shouldn't happen but just in case
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}
