package channel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/logger"
	"github.com/turtacn/soapproxy/pkg/params"
)

// LoggingBehavior publishes the diagnostic logger to the build and adds a log
// scope inspector to the client runtime.
type LoggingBehavior struct {
	Logger logger.Logger
}

// AddBindingParameters implements ContractBehavior.
func (b *LoggingBehavior) AddBindingParameters(parameters *params.Collection) {
	if b.Logger != nil && !params.Contains[logger.Logger](parameters) {
		parameters.Add(b.Logger)
	}
}

// ApplyClientBehavior implements ContractBehavior.
func (b *LoggingBehavior) ApplyClientBehavior(runtime *ClientRuntime) {
	runtime.MessageInspectors = append(runtime.MessageInspectors, NewLogScopeInspector(b.Logger, runtime.Contract))
}

// LogScopeInspector opens a log scope for each request and closes it when the
// reply arrives. The scope logger, tagged with a request ID and the SOAP action,
// is placed in the call context so lower layers log within it.
type LogScopeInspector struct {
	logger   logger.Logger
	contract string
	scopes   sync.Map
}

type logScope struct {
	logger  logger.Logger
	started time.Time
}

// NewLogScopeInspector creates an inspector for contract.
func NewLogScopeInspector(log logger.Logger, contract string) *LogScopeInspector {
	return &LogScopeInspector{logger: logger.OrNoop(log), contract: contract}
}

// BeforeSendRequest implements ClientMessageInspector.
func (i *LogScopeInspector) BeforeSendRequest(ctx context.Context, request *Message) (context.Context, any) {
	id := uuid.NewString()
	scoped := i.logger.ForContext(ctx).WithFields(logger.Fields{
		"request_id": id,
		"contract":   i.contract,
		"action":     request.Action,
		"message_id": request.MessageID,
	})
	i.scopes.Store(id, &logScope{logger: scoped, started: time.Now()})

	ctx = context.WithValue(ctx, constants.ContextKeyRequestID, id)
	return logger.NewContext(ctx, scoped), id
}

// AfterReceiveReply implements ClientMessageInspector.
func (i *LogScopeInspector) AfterReceiveReply(ctx context.Context, reply *Message, state any) {
	id, _ := state.(string)
	v, ok := i.scopes.LoadAndDelete(id)
	if !ok {
		return
	}
	scope := v.(*logScope)
	if scope.logger.Enabled(logger.DebugLevel) {
		scope.logger.Debug(ctx, "SOAP call completed", logger.Fields{
			"duration_ms": time.Since(scope.started).Milliseconds(),
			"replied":     reply != nil,
		})
	}
}

// OpenScopes returns the number of requests still in flight.
func (i *LogScopeInspector) OpenScopes() int {
	n := 0
	i.scopes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
