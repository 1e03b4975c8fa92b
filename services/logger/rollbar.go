package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	rollbarerrs "github.com/rollbar/rollbar-go/errors"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/user"
)

// RollbarLogger ships occurrences to Rollbar through an owned client and
// echoes everything to a standard logger so deployment logs stay greppable.
type RollbarLogger struct {
	client *rollbar.Client
	std    *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Addr, "")
	client.SetStackTracer(rollbarerrs.StackTracer)
	return &RollbarLogger{client: client, std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// report sends msg and args at the given level. A user.User argument
// identifies the person on the occurrence rather than being reported as
// data; their portal role rides along as custom context.
func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	payload := make([]interface{}, 0, len(args)+1)
	payload = append(payload, msg)

	var personSet bool
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if !ok {
			payload = append(payload, arg)
			continue
		}
		if personSet { // only the first User identifies the occurrence
			continue
		}
		l.client.SetPerson(usr.ID, usr.Name, usr.Email)
		payload = append(payload, map[string]interface{}{"role": usr.Role})
		personSet = true
	}
	if !personSet {
		l.client.ClearPerson()
	}

	l.client.Log(level, payload...)
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.DEBUG, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.client.Wait() // flush before the process dies
	l.std.Fatal(msg)
}
