package entity

// PipelineState is a notification snapshot, not authoritative state.
type PipelineState struct {
	IsProcessing      bool   `json:"isProcessing"`
	LastCommand       string `json:"lastCommand,omitempty"`
	LastResult        string `json:"lastResult,omitempty"`
	RelayConnected    bool   `json:"relayConnected"`
	WhatsappConnected bool   `json:"whatsappConnected"`
}
