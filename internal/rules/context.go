package rules

import (
	"sync"

	"go.uber.org/zap"
)

const (
	warningRecordedMessageConstant = "Migration warning"
	taskRegisteredMessageConstant  = "Registered post-run task"
	ruleLogFieldConstant           = "rule"
	taskLogFieldConstant           = "task"
	warningLogFieldConstant        = "warning"
)

// Task is deferred work registered by a rule and executed by the host after a successful run.
type Task interface {
	Name() string
}

// Warning is a non-fatal notice raised by a rule.
type Warning struct {
	Rule    string
	Message string
}

// Context carries the logger and the side channels shared by every rule of a run.
type Context struct {
	logger *zap.Logger

	mutex    sync.Mutex
	tasks    []Task
	warnings []Warning
}

// NewContext constructs a Context.
func NewContext(logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{logger: logger}
}

// Logger returns the run logger.
func (runContext *Context) Logger() *zap.Logger {
	return runContext.logger
}

// AddTask registers deferred work for the host.
func (runContext *Context) AddTask(task Task) {
	if task == nil {
		return
	}
	runContext.mutex.Lock()
	runContext.tasks = append(runContext.tasks, task)
	runContext.mutex.Unlock()
	runContext.logger.Debug(taskRegisteredMessageConstant, zap.String(taskLogFieldConstant, task.Name()))
}

// Tasks returns the registered tasks in registration order.
func (runContext *Context) Tasks() []Task {
	runContext.mutex.Lock()
	defer runContext.mutex.Unlock()
	return append([]Task(nil), runContext.tasks...)
}

// Warn records a warning and logs it.
func (runContext *Context) Warn(ruleName string, message string) {
	runContext.mutex.Lock()
	runContext.warnings = append(runContext.warnings, Warning{Rule: ruleName, Message: message})
	runContext.mutex.Unlock()
	runContext.logger.Warn(warningRecordedMessageConstant, zap.String(ruleLogFieldConstant, ruleName), zap.String(warningLogFieldConstant, message))
}

// Warnings returns the recorded warnings in order.
func (runContext *Context) Warnings() []Warning {
	runContext.mutex.Lock()
	defer runContext.mutex.Unlock()
	return append([]Warning(nil), runContext.warnings...)
}
