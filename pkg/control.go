package himitsu

import "time"

// Control is the synchronous API embedders use to drive a running
// Dispatcher: each call enqueues a control message and, where a reply is
// meaningful, blocks until the dispatcher fulfils it.
type Control struct {
	send chan<- ControlMessage
}

// NewControl wraps a Dispatcher's control channel.
func NewControl(send chan<- ControlMessage) *Control {
	return &Control{send: send}
}

// Stop requests a clean shutdown: the dispatcher stops accepting new
// connections and Run returns.
func (c *Control) Stop() { c.send <- ShutdownMessage() }

// Update requests a configuration reload from the original source.
func (c *Control) Update() { c.send <- UpdateMessage() }

// SilenceOnce arms a one-shot silence on the handler's next non-empty scan.
func (c *Control) SilenceOnce() { c.send <- SilenceOnceMessage() }

// SilenceSet arms a timed silence window starting on the next non-empty
// scan.
func (c *Control) SilenceSet(duration time.Duration) {
	c.send <- SilenceSetMessage(int64(duration.Seconds()))
}

// GetFindings blocks until the dispatcher returns a snapshot of the
// handler's retained findings.
func (c *Control) GetFindings() []Finding {
	msg, reply := FetchLastFoundSecretsMessage()
	c.send <- msg
	return <-reply
}

// ClearFindings empties the handler's retained findings set.
func (c *Control) ClearFindings() { c.send <- ClearFoundSecretsMessage() }
