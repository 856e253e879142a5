package channel

import (
	"context"
	stderrors "errors"
	"net/url"
	"sync"

	"github.com/beevik/etree"

	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
	"github.com/turtacn/soapproxy/pkg/params"
)

// ClientMessageInspector observes requests and replies of a service channel.
type ClientMessageInspector interface {
	// BeforeSendRequest runs before a request is sent. The returned context is
	// used for the rest of the call; state is handed back to AfterReceiveReply.
	BeforeSendRequest(ctx context.Context, request *Message) (context.Context, any)
	// AfterReceiveReply runs after the call completes. reply is nil when the
	// call failed or the operation has no reply.
	AfterReceiveReply(ctx context.Context, reply *Message, state any)
}

// ClientRuntime holds the per-factory extension points applied to every channel.
type ClientRuntime struct {
	Contract          string
	MessageInspectors []ClientMessageInspector
}

// ContractBehavior customizes a service channel factory for a contract.
type ContractBehavior interface {
	// AddBindingParameters adds items to the build parameters.
	AddBindingParameters(parameters *params.Collection)
	// ApplyClientBehavior modifies the client runtime.
	ApplyClientBehavior(runtime *ClientRuntime)
}

// ServiceChannel is the proxy handed to callers: a request channel with a
// lifecycle, closed and faulted events, and message inspectors.
type ServiceChannel struct {
	lifecycle

	inner    RequestChannel
	runtime  *ClientRuntime
	timeouts Timeouts
	logger   logger.Logger

	openMu sync.Mutex
}

func newServiceChannel(inner RequestChannel, runtime *ClientRuntime, timeouts Timeouts, log logger.Logger) *ServiceChannel {
	return &ServiceChannel{
		inner:    inner,
		runtime:  runtime,
		timeouts: timeouts,
		logger:   logger.OrNoop(log),
	}
}

// Contract returns the contract name the channel was built for.
func (c *ServiceChannel) Contract() string { return c.runtime.Contract }

// Parameters returns the channel parameter collection.
func (c *ServiceChannel) Parameters() *params.Collection { return c.inner.Parameters() }

// RemoteAddress returns the logical service address.
func (c *ServiceChannel) RemoteAddress() *url.URL { return c.inner.RemoteAddress() }

// Via returns the transport address.
func (c *ServiceChannel) Via() *url.URL { return c.inner.Via() }

// Open opens the channel stack. Failure faults the channel.
func (c *ServiceChannel) Open(ctx context.Context) error {
	if err := c.beginOpen(); err != nil {
		return err
	}
	if c.timeouts.Open > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeouts.Open)
		defer cancel()
	}
	err := c.inner.Open(ctx)
	c.endOpen(err)
	return err
}

// ensureOpen opens a newly created channel on first use.
func (c *ServiceChannel) ensureOpen(ctx context.Context) error {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	switch c.State() {
	case StateOpened:
		return nil
	case StateCreated:
		return c.Open(ctx)
	default:
		return errors.ErrChannelNotUsable.WithDetail("state", c.State().String())
	}
}

// Call sends body with the given action and returns the reply body. SOAP
// faults are returned as *FaultError and leave the channel usable; transport
// and security failures fault it.
func (c *ServiceChannel) Call(ctx context.Context, action string, body *etree.Element) (*etree.Element, error) {
	if err := c.ensureOpen(ctx); err != nil {
		return nil, err
	}

	request := NewMessage(action, body)
	states := make([]any, len(c.runtime.MessageInspectors))
	for i, inspector := range c.runtime.MessageInspectors {
		ctx, states[i] = inspector.BeforeSendRequest(ctx, request)
	}

	reply, err := c.inner.Request(ctx, request)

	for i := len(c.runtime.MessageInspectors) - 1; i >= 0; i-- {
		c.runtime.MessageInspectors[i].AfterReceiveReply(ctx, reply, states[i])
	}

	if err != nil {
		if !stderrors.Is(err, context.Canceled) {
			c.fault()
		}
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}

	replyBody, err := reply.Body()
	if err != nil {
		return nil, err
	}
	if reply.IsFault {
		return nil, parseFault(replyBody)
	}
	return replyBody, nil
}

// Close closes the channel gracefully, aborting it if that fails.
func (c *ServiceChannel) Close(ctx context.Context) error {
	if !c.beginClose() {
		return nil
	}
	if c.timeouts.Close > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeouts.Close)
		defer cancel()
	}
	err := c.inner.Close(ctx)
	if err != nil {
		c.inner.Abort()
	}
	c.endClose()
	return err
}

// Abort closes the channel immediately.
func (c *ServiceChannel) Abort() {
	if !c.beginClose() {
		return
	}
	c.inner.Abort()
	c.endClose()
}

// Dispose releases the channel: faulted channels are aborted, others closed.
func (c *ServiceChannel) Dispose() {
	if c.State() == StateFaulted {
		c.Abort()
		return
	}
	if err := c.Close(context.Background()); err != nil {
		c.logger.Warn(context.Background(), "Failed to close channel", logger.Fields{
			"contract": c.runtime.Contract,
			"error":    err.Error(),
		})
	}
}
