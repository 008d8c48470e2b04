package config

// BroadcastConfig defines settings for the websocket hub.
type BroadcastConfig struct {
	// Addr is the listen address of the websocket endpoint.
	Addr string `json:"addr"`
	// Buffer is the per-client send buffer; slow clients past it drop events.
	Buffer int `json:"buffer"`
}

// SetDefaults applies sane defaults.
func (c *BroadcastConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
}
