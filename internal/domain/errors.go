package domain

import "errors"

var (
	// ErrAccountNotFound signals a missing tenant account at index initialization.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmbeddingProviderError signals an embedding provider failure or empty vector.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrUnknownTool signals an unrecognized tool name in a tool call.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrNotInitialized signals use of the index adapter before Initialize.
	ErrNotInitialized = errors.New("index not initialized")
)
