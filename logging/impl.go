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
)

// impl fans entries out to its appenders. Subloggers and WithFields copies share the
// appender slice but own their level and attached fields.
type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
	fields    []zapcore.Field
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     inUTC,
		appenders: appenders,
	}
}

func (imp *impl) clone(name string) *impl {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
		fields:    imp.fields,
	}
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	if imp.name == "" {
		return imp.clone(subname)
	}
	return imp.clone(imp.name + "." + subname)
}

func (imp *impl) WithFields(keysAndValues ...interface{}) Logger {
	child := imp.clone(imp.name)
	extra := pairsToFields(keysAndValues)
	child.fields = make([]zapcore.Field, 0, len(imp.fields)+len(extra))
	child.fields = append(child.fields, imp.fields...)
	child.fields = append(child.fields, extra...)
	return child
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	cores := make([]zapcore.Core, 0, len(imp.appenders))
	for _, appender := range imp.appenders {
		// the test observer is already a core
		if core, ok := appender.(zapcore.Core); ok {
			cores = append(cores, core)
			continue
		}
		cores = append(cores, &appenderCore{LevelEnabler: imp.level, appender: appender})
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).
		Sugar().
		Named(imp.name).
		With(fieldsToArgs(imp.fields)...)
}

// emit builds the entry and hands it to every appender. Appender failures go to stderr
// since there is nowhere else to report them.
func (imp *impl) emit(level Level, msg string, fields []zapcore.Field) {
	now := time.Now()
	if imp.inUTC {
		now = now.UTC()
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       now,
		LoggerName: imp.name,
		Message:    msg,
		Caller:     callerOf(),
	}
	if len(imp.fields) > 0 {
		fields = append(append(make([]zapcore.Field, 0, len(imp.fields)+len(fields)), imp.fields...), fields...)
	}
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (imp *impl) enabled(level Level) bool {
	return level >= imp.level.Get()
}

func (imp *impl) print(level Level, args []interface{}) {
	if imp.enabled(level) {
		imp.emit(level, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) printf(level Level, template string, args []interface{}) {
	if imp.enabled(level) {
		imp.emit(level, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) printw(level Level, msg string, keysAndValues []interface{}) {
	if imp.enabled(level) {
		imp.emit(level, msg, pairsToFields(keysAndValues))
	}
}

func (imp *impl) Debug(args ...interface{}) { imp.print(DEBUG, args) }
func (imp *impl) Debugf(template string, args ...interface{}) { imp.printf(DEBUG, template, args) }
func (imp *impl) Debugw(msg string, kv ...interface{}) { imp.printw(DEBUG, msg, kv) }
func (imp *impl) Info(args ...interface{}) { imp.print(INFO, args) }
func (imp *impl) Infof(template string, args ...interface{}) { imp.printf(INFO, template, args) }
func (imp *impl) Infow(msg string, kv ...interface{}) { imp.printw(INFO, msg, kv) }
func (imp *impl) Warn(args ...interface{}) { imp.print(WARN, args) }
func (imp *impl) Warnf(template string, args ...interface{}) { imp.printf(WARN, template, args) }
func (imp *impl) Warnw(msg string, kv ...interface{}) { imp.printw(WARN, msg, kv) }
func (imp *impl) Error(args ...interface{}) { imp.print(ERROR, args) }
func (imp *impl) Errorf(template string, args ...interface{}) { imp.printf(ERROR, template, args) }
func (imp *impl) Errorw(msg string, kv ...interface{}) { imp.printw(ERROR, msg, kv) }

var errUnpairedKey = errors.New("unpaired log key")

// pairsToFields reads alternating keys and values. A trailing key with no value is kept
// with an error as its value so the mistake shows up in the output.
func pairsToFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		var key string
		switch k := keysAndValues[i].(type) {
		case string:
			key = k
		case fmt.Stringer:
			key = k.String()
		default:
			key = fmt.Sprint(k)
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func fieldsToArgs(fields []zapcore.Field) []interface{} {
	args := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return args
}

// callerOf reports the code that called a Debug/Info/... method. Frames skipped:
// callerOf, emit, print*, and the exported level method.
func callerOf() zapcore.EntryCaller {
	const skip = 4
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
