// Package channel builds SOAP request channels from ordered binding elements.
// Each element wraps one layer of the channel stack and may read from or add to
// the parameter collection shared by the build; the last element must be a
// transport. Channels expose their own parameter collection, which is how the
// proxy factory attaches an issued token to a channel after it is created.
package channel

import (
	"context"
	"net/url"
	"time"

	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/params"
)

// ================================================================================
// Pipeline Contracts
// ================================================================================

// BindingElement is one stage of the channel build pipeline.
type BindingElement interface {
	// Clone returns an independent copy; bindings hand out clones so a build
	// never mutates the configured elements.
	Clone() BindingElement
	// BuildChannelFactory builds this layer, normally by calling
	// bc.BuildInnerChannelFactory and wrapping the result.
	BuildChannelFactory(bc *BuildContext) (ChannelFactory, error)
}

// ChannelFactory creates request channels for an address.
type ChannelFactory interface {
	// CreateChannel creates a channel that addresses to and sends to via.
	// A nil via sends to to.
	CreateChannel(to, via *url.URL) (RequestChannel, error)
}

// RequestChannel sends a request and waits for the reply.
type RequestChannel interface {
	Open(ctx context.Context) error
	Request(ctx context.Context, msg *Message) (*Message, error)
	Close(ctx context.Context) error
	Abort()
	// Parameters returns the channel's parameter collection.
	Parameters() *params.Collection
	RemoteAddress() *url.URL
	Via() *url.URL
}

// BuildContext carries the parameter collection and the elements left to build.
type BuildContext struct {
	Parameters *params.Collection
	remaining  []BindingElement
}

// NewBuildContext creates a build context over elements.
func NewBuildContext(elements []BindingElement, parameters *params.Collection) *BuildContext {
	if parameters == nil {
		parameters = params.New()
	}
	remaining := make([]BindingElement, len(elements))
	copy(remaining, elements)
	return &BuildContext{Parameters: parameters, remaining: remaining}
}

// RemainingElements returns the elements not yet built.
func (bc *BuildContext) RemainingElements() []BindingElement {
	out := make([]BindingElement, len(bc.remaining))
	copy(out, bc.remaining)
	return out
}

// BuildInnerChannelFactory builds the next element.
func (bc *BuildContext) BuildInnerChannelFactory() (ChannelFactory, error) {
	if len(bc.remaining) == 0 {
		return nil, errors.ErrInvalidConfiguration.WithMessage("binding does not end with a transport element")
	}
	next := bc.remaining[0]
	bc.remaining = bc.remaining[1:]
	return next.BuildChannelFactory(bc)
}

// ================================================================================
// Bindings
// ================================================================================

// Timeouts bound channel operations.
type Timeouts struct {
	Open    time.Duration
	Close   time.Duration
	Send    time.Duration
	Receive time.Duration
}

// DefaultTimeouts returns the default timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Open:    constants.DefaultOpenTimeout,
		Close:   constants.DefaultCloseTimeout,
		Send:    constants.DefaultSendTimeout,
		Receive: constants.DefaultReceiveTimeout,
	}
}

// Binding produces the ordered binding elements of a channel stack.
type Binding interface {
	Name() string
	CreateBindingElements() []BindingElement
	Timeouts() Timeouts
}

// CustomBinding is a binding over an explicit element list.
type CustomBinding struct {
	BindingName     string
	Elements        []BindingElement
	ChannelTimeouts Timeouts
}

// NewCustomBinding creates a binding over elements with default timeouts.
func NewCustomBinding(name string, elements ...BindingElement) *CustomBinding {
	return &CustomBinding{BindingName: name, Elements: elements, ChannelTimeouts: DefaultTimeouts()}
}

// Name implements Binding.
func (b *CustomBinding) Name() string { return b.BindingName }

// Timeouts implements Binding.
func (b *CustomBinding) Timeouts() Timeouts { return b.ChannelTimeouts }

// CreateBindingElements returns clones of the elements in order.
func (b *CustomBinding) CreateBindingElements() []BindingElement {
	return cloneElements(b.Elements)
}

// IssuedTokenBinding is an HTTP binding that presents an issued token in the
// WS-Security header of every request.
type IssuedTokenBinding struct {
	KeyType                constants.KeyType
	SecurityMode           constants.SecurityMode
	MaxReceivedMessageSize int64
	MaxBufferPoolSize      int64
	ReaderQuotas           ReaderQuotas
	ChannelTimeouts        Timeouts
	TimestampValidity      time.Duration

	// Stages are inserted between the security presence element and the
	// message security element, in order.
	Stages []BindingElement
}

// NewIssuedTokenBinding creates a binding with default limits.
func NewIssuedTokenBinding() *IssuedTokenBinding {
	return &IssuedTokenBinding{
		KeyType:                constants.KeyTypeBearer,
		SecurityMode:           constants.SecurityModeTransportWithMessageCredential,
		MaxReceivedMessageSize: constants.DefaultMaxReceivedMessageSize,
		MaxBufferPoolSize:      constants.DefaultMaxBufferPoolSize,
		ReaderQuotas:           DefaultReaderQuotas(),
		ChannelTimeouts:        DefaultTimeouts(),
		TimestampValidity:      constants.DefaultTimestampValidity,
	}
}

// Name implements Binding.
func (b *IssuedTokenBinding) Name() string { return "IssuedTokenHttpBinding" }

// Timeouts implements Binding.
func (b *IssuedTokenBinding) Timeouts() Timeouts { return b.ChannelTimeouts }

// CreateBindingElements implements Binding.
func (b *IssuedTokenBinding) CreateBindingElements() []BindingElement {
	elements := []BindingElement{NewIssuedTokenElement()}
	elements = append(elements, cloneElements(b.Stages)...)
	elements = append(elements,
		&TransportSecurityElement{KeyType: b.KeyType, TimestampValidity: b.TimestampValidity},
		&TextMessageEncodingElement{ReaderQuotas: b.ReaderQuotas},
		&HTTPTransportElement{
			MaxReceivedMessageSize: b.MaxReceivedMessageSize,
			MaxBufferPoolSize:      b.MaxBufferPoolSize,
			RequireHTTPS:           b.SecurityMode != constants.SecurityModeMessageCredentialOnly,
			Timeouts:               b.ChannelTimeouts,
		},
	)
	return elements
}

func cloneElements(elements []BindingElement) []BindingElement {
	out := make([]BindingElement, 0, len(elements))
	for _, e := range elements {
		if e != nil {
			out = append(out, e.Clone())
		}
	}
	return out
}
