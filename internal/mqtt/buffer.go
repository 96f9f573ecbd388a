package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// telemetry reports whether the message is best-effort tick data.
func (m bufferedMsg) telemetry() bool {
	return m.qos == 0
}

// outbox is a bounded FIFO of messages published while disconnected.
// When full, the oldest tick telemetry is evicted first so run events
// survive an outage that spans whole runs.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // since last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if len(o.msgs) < o.capacity {
		o.msgs = append(o.msgs, msg)
		return
	}

	if o.dropped == 0 {
		log.Printf("mqtt: outbox full (%d messages), dropping oldest telemetry", o.capacity)
	}
	o.dropped++

	victim := o.oldestTelemetry()
	if victim < 0 {
		if msg.telemetry() {
			// Only events are queued; they outrank a tick.
			return
		}
		victim = 0
	}
	copy(o.msgs[victim:], o.msgs[victim+1:])
	o.msgs[len(o.msgs)-1] = msg
}

func (o *outbox) oldestTelemetry() int {
	for i, m := range o.msgs {
		if m.telemetry() {
			return i
		}
	}
	return -1
}

// drainAll returns the queued messages oldest first and empties the outbox.
func (o *outbox) drainAll() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	if o.dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while disconnected", o.dropped)
	}

	result := o.msgs
	o.msgs = make([]bufferedMsg, 0, o.capacity)
	o.dropped = 0
	return result
}

func (o *outbox) len() int {
	return len(o.msgs)
}
