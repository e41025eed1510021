package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"
)

// impl fans every entry at or above its level out to its appenders.
type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

func newLogger(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: inUTC, appenders: appenders}
}

func (l *impl) addAppender(appender Appender) {
	l.appenders = append(l.appenders, appender)
}

func (l *impl) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *impl) Level() Level {
	return l.level.Get()
}

// Sublogger starts at the parent's current level; later SetLevel calls do not propagate.
func (l *impl) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return &impl{name: name, level: NewAtomicLevelAt(l.level.Get()), inUTC: l.inUTC, appenders: l.appenders}
}

func (l *impl) Sync() error {
	var errs error
	for _, appender := range l.appenders {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}

func (l *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if l.enabled(DEBUG) {
		l.emit(DEBUG, msg, keysAndValues)
	}
}

func (l *impl) Infof(template string, args ...interface{}) {
	if l.enabled(INFO) {
		l.emit(INFO, fmt.Sprintf(template, args...), nil)
	}
}

func (l *impl) Infow(msg string, keysAndValues ...interface{}) {
	if l.enabled(INFO) {
		l.emit(INFO, msg, keysAndValues)
	}
}

func (l *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if l.enabled(WARN) {
		l.emit(WARN, msg, keysAndValues)
	}
}

func (l *impl) Errorw(msg string, keysAndValues ...interface{}) {
	if l.enabled(ERROR) {
		l.emit(ERROR, msg, keysAndValues)
	}
}

// Fatal logs at error level regardless of the logger's level, then exits with status 1.
func (l *impl) Fatal(args ...interface{}) {
	l.emit(ERROR, fmt.Sprint(args...), nil)
	utils.UncheckedError(l.Sync())
	os.Exit(1)
}

func (l *impl) enabled(level Level) bool {
	return level >= l.level.Get()
}

// emit must be called directly from an exported logging method so the caller lookup lands on
// the user's code.
func (l *impl) emit(level Level, msg string, keysAndValues []interface{}) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: l.name,
		Message:    msg,
		Caller:     callerAt(3),
	}
	if l.inUTC {
		entry.Time = entry.Time.UTC()
	}
	fields := keyValueFields(keysAndValues)
	for _, appender := range l.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

var errUnpairedKey = errors.New("unpaired log key")

// keyValueFields pairs up alternating keys and values. A trailing key without a value is
// kept with an error value so it still shows up.
func keyValueFields(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func callerAt(skip int) zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
