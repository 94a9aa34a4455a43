package logsvc

import (
	"io"
	"log"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

// RollbarLogger reports to Rollbar and mirrors every entry to a std logger.
type RollbarLogger struct {
	std *log.Logger
	mu  *sync.Mutex // rollbar's person is global
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std, mu: new(sync.Mutex)}
}

// NewRollbarLoggerMock returns a RollbarLogger that reports nowhere.
func NewRollbarLoggerMock() *RollbarLogger {
	rollbar.SetEnabled(false)
	return &RollbarLogger{std: log.New(io.Discard, "", 0), mu: new(sync.Mutex)}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close waits for the queued reports to be sent.
func (l RollbarLogger) Close() {
	rollbar.Close()
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// the request user becomes the rollbar person
		if usr, ok := arg.(user.User); ok {
			if !usrSet {
				rollbar.SetPerson(usr.ID, usr.Name, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		if _, ok := arg.(user.User); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) report(level, msg string, args []interface{}, fn func(...interface{})) {
	l.mu.Lock()
	fn(l.prepare(msg, args)...)
	l.mu.Unlock()
	l.print(level, msg, args)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report("DEBUG", msg, args, rollbar.Debug)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report("INFO", msg, args, rollbar.Info)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report("WARN", msg, args, rollbar.Warning)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report("ERROR", msg, args, rollbar.Error)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report("FATAL", msg, args, rollbar.Critical)
	rollbar.Close()
	l.std.Fatal(msg)
}
