package realtime

import (
	"encoding/json"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Message Router
//
// Decodes inbound frames, classifies them by kind, derives the routing channel
// and dispatches to every live subscription on it. Malformed frames are logged
// and dropped; they never tear down the connection. A frame for a channel with
// no subscribers is dropped silently: that is the normal race of a message
// still in flight after an unsubscribe.
// -----------------------------------------------------------------------------

type Router struct {
	registry *Registry
	logger   *logger.Logger

	// Single liveness hook for keepalive acks; never a data consumer.
	keepalive func()
}

// -----------------------------------------------------------------------------

func NewRouter(registry *Registry, log *logger.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   log,
	}
}

// -----------------------------------------------------------------------------

// OnKeepalive installs the hook invoked for each pong frame.
func (rt *Router) OnKeepalive(hook func()) {
	rt.keepalive = hook
}

// -----------------------------------------------------------------------------

// Route classifies one raw inbound frame and dispatches it.
func (rt *Router) Route(raw []byte) {
	var env models.MEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		rt.logger.Warning("Dropping malformed frame: %v", err)
		return
	}
	if env.Type == "" {
		rt.logger.Warning("Dropping frame without type field")
		return
	}

	switch env.Type {
	case models.MsgPong:
		if rt.keepalive != nil {
			rt.keepalive()
		}
		return
	case models.MsgSubscribed, models.MsgUnsubscribed:
		rt.logger.Debug("Server ack: %s %s", env.Type, env.Channel)
		return
	}

	channel := env.DataChannel()
	if channel == "" {
		rt.logger.Warning("Dropping unroutable %s frame (no channel correlation)", env.Type)
		return
	}

	subs := rt.registry.Subscribers(channel)
	if len(subs) == 0 {
		// Expected: message for a channel unsubscribed moments earlier.
		rt.logger.Debug("No subscribers for %s, dropping %s frame", channel, env.Type)
		return
	}

	msg := models.NewInboundMessage(&env, raw)
	for _, sub := range subs {
		rt.dispatch(sub, msg)
	}
}

// -----------------------------------------------------------------------------

// dispatch invokes one handler, isolating its failures from siblings on the
// same channel. Membership is re-checked here so a subscription closed after
// the snapshot is never invoked.
func (rt *Router) dispatch(sub *Subscription, msg *models.MInboundMessage) {
	if !sub.active() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("Subscriber on %s panicked: %v", sub.channel, r)
		}
	}()

	sub.handler(msg)
}
