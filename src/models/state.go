package models

// -----------------------------------------------------------------------------
// ConnState is the process-wide connection state of the realtime client.
// At most one live socket exists at a time; transitions are driven by socket
// events and the reconnect timer.
// -----------------------------------------------------------------------------

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)
