package assistant

import "ProjectAssistant/pkg/response"

var (
	ErrPipelineNotRunning    = response.NewError(503, "assistant pipeline is not running")
	ErrPipelineBusy          = response.NewError(429, "assistant pipeline queue is full")
	ErrEmptyCommand          = response.NewError(400, "command text is empty")
	ErrInvalidRequest        = response.NewError(400, "invalid request body")
	ErrNoPendingConfirmation = response.NewError(404, "no pending confirmation")
	ErrShortcutExists        = response.NewError(409, "shortcut already registered")
	ErrStoreCommandLog       = response.NewError(500, "failed to store command log")
	ErrCatalogRefresh        = response.NewError(502, "catalog refresh failed")
)
