package main

import (
	"fmt"

	"github.com/goliatone/go-logger/glog"

	auth "github.com/goliatone/go-civic-auth"
)

// loggers adapts glog named loggers to the printf style auth.Logger
type loggers struct {
	base *glog.BaseLogger
}

func (l loggers) GetLogger(name string) auth.Logger {
	return printfLogger{l.base.GetLogger(name)}
}

type printfLogger struct {
	glog.Logger
}

func (p printfLogger) Debug(format string, args ...any) {
	p.Logger.Debug(fmt.Sprintf(format, args...))
}

func (p printfLogger) Info(format string, args ...any) {
	p.Logger.Info(fmt.Sprintf(format, args...))
}

func (p printfLogger) Warn(format string, args ...any) {
	p.Logger.Warn(fmt.Sprintf(format, args...))
}

func (p printfLogger) Error(format string, args ...any) {
	p.Logger.Error(fmt.Sprintf(format, args...))
}
