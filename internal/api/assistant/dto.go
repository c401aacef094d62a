package assistant

import "time"

type SubmitCommandRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type CommandResultResponse struct {
	CommandID string   `json:"command_id"`
	Kind      string   `json:"kind"`
	Reply     string   `json:"reply"`
	Options   []string `json:"options,omitempty"`
}

type RegisterShortcutRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

type HistoryQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
}

type PipelineStateResponse struct {
	Lifecycle         string  `json:"lifecycle"`
	IsProcessing      bool    `json:"is_processing"`
	LastCommand       *string `json:"last_command"`
	LastResult        *string `json:"last_result"`
	RelayConnected    bool    `json:"relay_connected"`
	WhatsappConnected bool    `json:"whatsapp_connected"`
}

type PendingConfirmationResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Target    *string   `json:"target"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CatalogResponse struct {
	Devices   int `json:"devices"`
	Scenes    int `json:"scenes"`
	Shortcuts int `json:"shortcuts"`
}
