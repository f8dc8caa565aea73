package storage

import (
	"rl-dashboard/src/interfaces"
	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Recorder tails the live stream into the database. Each Handle* method has
// the subscription callback signature, so the recorder plugs straight into
// channel subscriptions next to the chart consumers. Persistence failures are
// logged and swallowed: a broken recorder must never stall the stream.
// -----------------------------------------------------------------------------

type Recorder struct {
	DB     interfaces.IDatabase
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRecorder(db interfaces.IDatabase, log *logger.Logger) *Recorder {
	return &Recorder{
		DB:     db,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// HandleAgentMetric records one training metric frame.
func (r *Recorder) HandleAgentMetric(msg *models.MInboundMessage) {
	metric, err := msg.AgentMetric()
	if err != nil {
		r.Logger.Warning("Recorder: undecodable agent metric on %s: %v", msg.Channel, err)
		return
	}

	if err := r.DB.SaveAgentMetric(metric); err != nil {
		r.Logger.Error("Recorder: failed to save agent metric: %v", err)
	}
}

// -----------------------------------------------------------------------------

// HandleTrade records one trade execution frame.
func (r *Recorder) HandleTrade(msg *models.MInboundMessage) {
	trade, err := msg.Trade()
	if err != nil {
		r.Logger.Warning("Recorder: undecodable trade on %s: %v", msg.Channel, err)
		return
	}

	if err := r.DB.SaveTrade(trade); err != nil {
		r.Logger.Error("Recorder: failed to save trade: %v", err)
	}
}

// -----------------------------------------------------------------------------

// HandlePortfolioUpdate records one portfolio snapshot frame.
func (r *Recorder) HandlePortfolioUpdate(msg *models.MInboundMessage) {
	update, err := msg.PortfolioUpdate()
	if err != nil {
		r.Logger.Warning("Recorder: undecodable portfolio update on %s: %v", msg.Channel, err)
		return
	}

	if err := r.DB.SavePortfolioSnapshot(update); err != nil {
		r.Logger.Error("Recorder: failed to save portfolio snapshot: %v", err)
	}
}
