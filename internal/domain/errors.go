package domain

import "errors"

var (
	ErrNoModelsConfigured        = errors.New("no models configured")
	ErrNoConnectorForIntegration = errors.New("no connector registered for integration")
	ErrUpstreamTransport         = errors.New("upstream transport error")
	ErrMalformedResponse         = errors.New("malformed provider response")
	ErrConversationPersistence   = errors.New("conversation persistence failed")
	ErrConversationNotFound      = errors.New("conversation not found")
)
