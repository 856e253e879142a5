package service

import (
	"io"

	"github.com/turtacn/soapproxy/internal/domain/models"
)

//go:generate mockery --name SecurityTokenHandler --output mocks --outpkg mocks
// SecurityTokenHandler reads token strings into SecurityTokens and writes tokens
// of one declared type to their XML wire form. Handlers are kept in ordered
// lists; the first one that applies wins.
// SecurityTokenHandler 将令牌字符串读取为 SecurityToken，并将声明类型的令牌写为 XML 线上形式。
type SecurityTokenHandler interface {
	// TokenType returns the token type this handler writes.
	// TokenType 返回此处理器写入的令牌类型。
	TokenType() models.TokenType

	// CanWriteToken reports whether the handler is currently able to write tokens.
	// CanWriteToken 报告处理器当前是否能够写入令牌。
	CanWriteToken() bool

	// WriteToken writes the XML form of token to w.
	// WriteToken 将令牌的 XML 形式写入 w。
	WriteToken(w io.Writer, token models.SecurityToken) error

	// CanReadToken reports whether raw looks like a token this handler understands.
	// CanReadToken 报告 raw 是否为此处理器可理解的令牌。
	CanReadToken(raw string) bool

	// ReadToken parses raw into a SecurityToken.
	// ReadToken 将 raw 解析为 SecurityToken。
	ReadToken(raw string) (models.SecurityToken, error)
}
