package tzbed

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
)

// messageKind tags what a dispatcher message carries.
type messageKind uint8

const (
	msgHits      messageKind = iota // zones matched by one batch
	msgDone                         // a worker finished, with or without hits
	msgFault                        // a worker failed; msgDone still follows
	msgExhausted                    // the feeder read the whole catalogue
)

// message is the only thing workers and the feeder share with the
// dispatcher.
type message struct {
	kind    messageKind
	batch   int      // batch sequence number (msgHits, msgDone, msgFault)
	zones   []string // msgHits
	spawned int      // msgExhausted
	err     error    // msgFault, msgExhausted
}

// send delivers m unless the run has been torn down.
func send(ctx context.Context, out chan<- message, m message) bool {
	select {
	case out <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// chunkWorker tests the query point against every feature of one batch.
type chunkWorker struct {
	batch  int
	rows   []Row
	point  orb.Point
	decode func(Row) []zoneFeature
}

// run emits at most one msgHits and always finishes with msgDone, even if
// the batch panics.
func (w chunkWorker) run(ctx context.Context, out chan<- message) {
	defer send(ctx, out, message{kind: msgDone, batch: w.batch})
	defer func() {
		if r := recover(); r != nil {
			send(ctx, out, message{
				kind:  msgFault,
				batch: w.batch,
				err:   fmt.Errorf("batch %d: %v", w.batch, r),
			})
		}
	}()

	var zones []string
	seen := make(map[string]struct{})
	for _, row := range w.rows {
		if ctx.Err() != nil {
			return
		}
		for _, f := range w.decode(row) {
			if _, dup := seen[f.zone]; dup {
				continue
			}
			if f.contains(w.point) {
				seen[f.zone] = struct{}{}
				zones = append(zones, f.zone)
			}
		}
	}
	if len(zones) > 0 {
		send(ctx, out, message{kind: msgHits, batch: w.batch, zones: zones})
	}
}
