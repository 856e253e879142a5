package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/soapproxy/pkg/errors"
)

type handlersConfig struct {
	Handlers []string      `mapstructure:"token_handlers" validate:"dive,token_handler"`
	Mode     string        `mapstructure:"mode" validate:"omitempty,oneof=a b"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(handlersConfig{Handlers: []string{"SAML11", "saml2", "Jwt"}, Mode: "a"}))
	assert.NoError(t, ValidateStruct(handlersConfig{}))

	err := ValidateStruct(handlersConfig{Handlers: []string{"saml2", "kerberos"}, Mode: "c", Timeout: -time.Second})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfiguration))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, `unknown token handler "kerberos"`, appErr.Details["token_handlers[1]"])
	assert.Equal(t, "must be one of: a b", appErr.Details["mode"])
	assert.Equal(t, "must be at least 0", appErr.Details["timeout"])
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken("abcd"))
	assert.Equal(t, "abcdefgh**", MaskToken("abcdefghij"))
	assert.Equal(t, "<saml2:A"+"****************", MaskToken(`<saml2:Assertion xmlns:saml2="urn:oasis:names:tc:SAML:2.0:assertion"/>`))
	assert.Equal(t, "ab***ef", MaskString("abcdeef", 2))
}
