package models

import "encoding/json"

// -----------------------------------------------------------------------------
// Message kinds (wire `type` field, inbound and outbound)
// -----------------------------------------------------------------------------

const (
	// Outbound control frames
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPing        = "ping"

	// Inbound acknowledgements / keepalive
	MsgPong         = "pong"
	MsgSubscribed   = "subscribed"
	MsgUnsubscribed = "unsubscribed"

	// Inbound data frames
	MsgPortfolioUpdate = "portfolio_update"
	MsgAgentMetric     = "agent_metric"
	MsgTradeExecuted   = "trade_executed"
	MsgMarketData      = "market_data"
)

// -----------------------------------------------------------------------------
// Channel topics. A channel is "<topic>:<entity_id>" and is treated as an
// opaque key everywhere past construction.
// -----------------------------------------------------------------------------

const (
	TopicPortfolioUpdates = "portfolio_updates"
	TopicAgentStats       = "agent_stats"
	TopicTradeExecuted    = "trade_executed"
	TopicMarketData       = "market_data"
)

// -----------------------------------------------------------------------------

// ChannelName builds the canonical channel string for a topic and entity id.
func ChannelName(topic, entityID string) string {
	return topic + ":" + entityID
}

// -----------------------------------------------------------------------------
// MControlFrame is an outbound subscribe/unsubscribe/ping frame.
// -----------------------------------------------------------------------------

type MControlFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
}

// -----------------------------------------------------------------------------
// MEnvelope is the decoded head of an inbound frame. Data frames do not echo a
// literal channel field; they carry the entity id the channel was built from,
// so the router reconstructs the channel from Type plus the id.
// -----------------------------------------------------------------------------

type MEnvelope struct {
	Type        string          `json:"type"`
	Channel     string          `json:"channel,omitempty"`
	PortfolioID string          `json:"portfolio_id,omitempty"`
	AgentRunID  string          `json:"agent_run_id,omitempty"`
	Ticker      string          `json:"ticker,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Metric      json.RawMessage `json:"metric,omitempty"`
	Trade       json.RawMessage `json:"trade,omitempty"`
}

// -----------------------------------------------------------------------------

// DataChannel derives the routing channel for a data frame. Empty means the
// frame has no channel correlation (keepalive, acks, unknown kinds).
func (e *MEnvelope) DataChannel() string {
	if e.Channel != "" {
		return e.Channel
	}

	switch e.Type {
	case MsgPortfolioUpdate:
		if e.PortfolioID != "" {
			return ChannelName(TopicPortfolioUpdates, e.PortfolioID)
		}
	case MsgAgentMetric:
		if e.AgentRunID != "" {
			return ChannelName(TopicAgentStats, e.AgentRunID)
		}
	case MsgTradeExecuted:
		if e.PortfolioID != "" {
			return ChannelName(TopicTradeExecuted, e.PortfolioID)
		}
	case MsgMarketData:
		if e.Ticker != "" {
			return ChannelName(TopicMarketData, e.Ticker)
		}
	}

	return ""
}

// -----------------------------------------------------------------------------

// Payload returns the kind-specific payload section of the frame.
func (e *MEnvelope) Payload() json.RawMessage {
	switch e.Type {
	case MsgAgentMetric:
		return e.Metric
	case MsgTradeExecuted:
		return e.Trade
	default:
		return e.Data
	}
}

// -----------------------------------------------------------------------------
// MInboundMessage is what subscription callbacks receive. Transient: it exists
// only for the duration of dispatch and must not be retained across calls.
// -----------------------------------------------------------------------------

type MInboundMessage struct {
	Type    string
	Channel string
	Raw     json.RawMessage // full frame as received

	envelope *MEnvelope
}

// -----------------------------------------------------------------------------

// NewInboundMessage pairs a decoded envelope with its raw frame.
func NewInboundMessage(env *MEnvelope, raw []byte) *MInboundMessage {
	return &MInboundMessage{
		Type:     env.Type,
		Channel:  env.DataChannel(),
		Raw:      raw,
		envelope: env,
	}
}

// -----------------------------------------------------------------------------

// AgentMetric decodes the frame payload as a training metric.
func (m *MInboundMessage) AgentMetric() (*MAgentMetric, error) {
	var metric MAgentMetric
	if err := json.Unmarshal(m.envelope.Payload(), &metric); err != nil {
		return nil, err
	}
	metric.AgentRunID = m.envelope.AgentRunID
	return &metric, nil
}

// -----------------------------------------------------------------------------

// PortfolioUpdate decodes the frame payload as a portfolio state update.
func (m *MInboundMessage) PortfolioUpdate() (*MPortfolioUpdate, error) {
	var update MPortfolioUpdate
	if err := json.Unmarshal(m.envelope.Payload(), &update); err != nil {
		return nil, err
	}
	update.PortfolioID = m.envelope.PortfolioID
	return &update, nil
}

// -----------------------------------------------------------------------------

// Trade decodes the frame payload as a trade execution notification.
func (m *MInboundMessage) Trade() (*MTrade, error) {
	var trade MTrade
	if err := json.Unmarshal(m.envelope.Payload(), &trade); err != nil {
		return nil, err
	}
	trade.PortfolioID = m.envelope.PortfolioID
	return &trade, nil
}

// -----------------------------------------------------------------------------

// MarketData decodes the frame payload as a market data tick.
func (m *MInboundMessage) MarketData() (*MMarketData, error) {
	var tick MMarketData
	if err := json.Unmarshal(m.envelope.Payload(), &tick); err != nil {
		return nil, err
	}
	if tick.Ticker == "" {
		tick.Ticker = m.envelope.Ticker
	}
	return &tick, nil
}
