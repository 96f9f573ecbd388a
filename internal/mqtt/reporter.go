package mqtt

import (
	"log"
	"sync"

	"github.com/sweeney/reflow-controller/internal/control"
	"github.com/sweeney/reflow-controller/internal/session"
)

// Reporter forwards session activity to a Publisher from its own goroutine so
// a slow broker never delays a control tick. When the queue is full, messages
// are dropped and counted.
type Reporter struct {
	pub   Publisher
	queue chan func() error

	// runID is only touched from the control loop goroutine.
	runID string

	mu      sync.Mutex
	dropped int
	closed  bool

	wg sync.WaitGroup
}

// NewReporter starts a reporter with the given queue depth.
func NewReporter(pub Publisher, depth int) *Reporter {
	if depth < 1 {
		depth = 1
	}
	r := &Reporter{pub: pub, queue: make(chan func() error, depth)}
	r.wg.Add(1)
	go r.loop()
	return r
}

func (r *Reporter) loop() {
	defer r.wg.Done()
	for job := range r.queue {
		if err := job(); err != nil {
			log.Printf("mqtt: publish error: %v", err)
			// Don't crash on publish failure
		}
	}
}

func (r *Reporter) enqueue(job func() error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	select {
	case r.queue <- job:
		r.mu.Unlock()
		return
	default:
	}
	r.dropped++
	n := r.dropped
	r.mu.Unlock()
	if n == 1 || n%100 == 0 {
		log.Printf("mqtt: reporter queue full, %d messages dropped", n)
	}
}

// Dropped returns how many messages were discarded because the queue was full.
func (r *Reporter) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// OnTick publishes the tick tagged with the current run id.
func (r *Reporter) OnTick(rec control.TickRecord) {
	msg := TickMessage{RunID: r.runID, Tick: rec}
	r.enqueue(func() error { return r.pub.PublishTick(msg) })
}

// OnTransition publishes run events. Plain returns to IDLE after a run are
// not published; the run outcome already covers them.
func (r *Reporter) OnTransition(tr session.Transition) {
	if tr.To == session.StateRunning {
		r.runID = tr.RunID
	}
	name := EventName(tr)
	if name == "" {
		return
	}
	ev := SystemEvent{
		Timestamp: tr.Time,
		Event:     name,
		RunID:     tr.RunID,
		TempC:     tr.TempC,
	}
	switch {
	case tr.Err != nil:
		ev.Reason = tr.Err.Error()
	case tr.Outcome != "":
		ev.Reason = string(tr.Outcome)
	}
	r.enqueue(func() error { return r.pub.PublishSystem(ev) })
}

// OnTemperature is a no-op; idle readings are served by the status page.
func (r *Reporter) OnTemperature(float64) {}

// Close publishes everything still queued and stops the reporter goroutine.
// Later calls and later activity are ignored.
func (r *Reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// EventName maps a transition to its system event name, or "" when the
// transition is not published.
func EventName(tr session.Transition) string {
	switch tr.To {
	case session.StateRunning:
		return "RUN_STARTED"
	case session.StateFinished:
		return "RUN_FINISHED"
	case session.StateStopped:
		return "RUN_STOPPED"
	case session.StateFaulted:
		return "RUN_FAULT"
	case session.StateOverheated:
		return "OVERHEATED"
	case session.StateIdle:
		switch {
		case tr.From == session.StateOverheated:
			return "COOLED"
		case tr.Outcome == session.OutcomeAborted:
			return "RUN_ABORTED"
		}
	}
	return ""
}
