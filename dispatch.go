package tzbed

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// dispatchState tracks where a single query is in its lifecycle.
type dispatchState uint8

const (
	stateIdle dispatchState = iota
	stateSpawning
	stateAwaiting
	stateDone
)

func (s dispatchState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSpawning:
		return "spawning"
	case stateAwaiting:
		return "awaiting"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("dispatchState(%d)", uint8(s))
	}
}

// dispatcher fans a query out over the whole catalogue, one chunk worker
// per batch, and collects every batch's hits.
type dispatcher struct {
	catalogue Catalogue
	batchSize int
	workers   int
	decode    func(Row) []zoneFeature
	log       *zap.Logger
}

// collect returns every zone whose geometry contains pt, ordered by
// catalogue position. It waits for all workers; an error means the
// catalogue could not be opened or read to the end.
func (d *dispatcher) collect(ctx context.Context, pt orb.Point) ([]string, error) {
	reader, err := d.catalogue.Open(ctx)
	if err != nil {
		return nil, err
	}

	run := newDispatchRun(ctx, d, reader, pt)
	defer run.teardown()

	run.spawn()
	return run.await()
}

// dispatchRun owns everything a single query starts: the reader, the
// message channel, the worker group and the feeder goroutine. teardown
// releases all of them exactly once.
type dispatchRun struct {
	d      *dispatcher
	point  orb.Point
	reader CatalogueReader

	ctx    context.Context
	cancel context.CancelFunc
	msgs   chan message
	group  errgroup.Group
	fed    chan struct{}

	state     dispatchState
	spawned   int
	completed int
	faults    int
	hits      hitSet

	closeOnce sync.Once
}

func newDispatchRun(parent context.Context, d *dispatcher, reader CatalogueReader, pt orb.Point) *dispatchRun {
	ctx, cancel := context.WithCancel(parent)
	r := &dispatchRun{
		d:      d,
		point:  pt,
		reader: reader,
		ctx:    ctx,
		cancel: cancel,
		msgs:   make(chan message),
		fed:    make(chan struct{}),
		state:  stateIdle,
		hits:   newHitSet(),
	}
	r.group.SetLimit(d.workers)
	return r
}

// spawn starts the feeder, which reads batches and launches one worker per
// non-empty batch until the catalogue is exhausted.
func (r *dispatchRun) spawn() {
	r.state = stateSpawning
	go r.feed()
}

func (r *dispatchRun) feed() {
	defer close(r.fed)

	spawned := 0
	var readErr error
	defer func() {
		if p := recover(); p != nil {
			readErr = fmt.Errorf("reading catalogue: %v", p)
		}
		send(r.ctx, r.msgs, message{kind: msgExhausted, spawned: spawned, err: readErr})
	}()

	// Readers may return short pages; only an empty one ends the scan.
	offset := 0
	for {
		if err := r.ctx.Err(); err != nil {
			readErr = err
			return
		}
		rows, err := r.reader.ReadBatch(r.ctx, offset, r.d.batchSize)
		if err != nil {
			readErr = fmt.Errorf("reading catalogue at offset %d: %w", offset, err)
			return
		}
		if len(rows) == 0 {
			return
		}
		offset += len(rows)
		w := chunkWorker{batch: spawned, rows: rows, point: r.point, decode: r.d.decode}
		spawned++
		r.group.Go(func() error {
			w.run(r.ctx, r.msgs)
			return nil
		})
	}
}

// await is the single consumer loop. It finishes once the feeder has
// reported how many workers it spawned and that many have completed.
func (r *dispatchRun) await() ([]string, error) {
	exhausted := false
	for !exhausted || r.completed < r.spawned {
		var m message
		select {
		case m = <-r.msgs:
		case <-r.ctx.Done():
			return nil, fmt.Errorf("awaiting workers: %w", r.ctx.Err())
		}

		switch m.kind {
		case msgHits:
			r.hits.add(m.batch, m.zones)
		case msgDone:
			r.completed++
		case msgFault:
			r.faults++
			r.d.log.Warn("chunk worker fault", zap.Int("batch", m.batch), zap.Error(m.err))
		case msgExhausted:
			if m.err != nil {
				return nil, m.err
			}
			exhausted = true
			r.spawned = m.spawned
			r.state = stateAwaiting
		}
	}

	zones := r.hits.zones()
	r.d.log.Debug("catalogue scan complete",
		zap.Int("batches", r.spawned),
		zap.Int("faults", r.faults),
		zap.Strings("zones", zones),
	)
	return zones, nil
}

// teardown cancels outstanding work, waits for the feeder and every
// worker to return, then closes the channel and the reader. It is safe to
// call more than once.
func (r *dispatchRun) teardown() {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.fed
		_ = r.group.Wait()
		close(r.msgs)
		if err := r.reader.Close(); err != nil {
			r.d.log.Warn("closing catalogue", zap.Error(err))
		}
		r.state = stateDone
	})
}
