package service

import "context"

//go:generate mockery --name TokenSource --output mocks --outpkg mocks
// TokenSource supplies token strings when a proxy is created without an explicit token.
// An empty string with a nil error means the source has no token to offer.
// TokenSource 在未显式提供令牌创建代理时提供令牌字符串。
type TokenSource interface {
	// GetSecurityToken returns a serialized security token.
	// GetSecurityToken 返回序列化的安全令牌。
	GetSecurityToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// GetSecurityToken implements TokenSource.
func (f TokenSourceFunc) GetSecurityToken(ctx context.Context) (string, error) {
	return f(ctx)
}
