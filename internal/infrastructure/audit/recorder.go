package audit

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/schoolms/backend/internal/infrastructure/config"
	"github.com/schoolms/backend/internal/infrastructure/persistence/models"
)

// Entry is one audit record queued for persistence. When the middleware
// started a pre-image fetch, PreImage delivers the serialized prior state;
// the worker waits for it up to the configured timeout and persists without
// it otherwise.
type Entry struct {
	Record   models.AuditLog
	PreImage <-chan []byte
}

// Recorder persists audit records through a single background worker fed by
// a bounded queue. Enqueueing never blocks: when the queue is full the
// record is dropped with a warning, because audit writes must never stall a
// request.
type Recorder struct {
	db              *gorm.DB
	log             *zap.Logger
	queue           chan Entry
	done            chan struct{}
	preImageTimeout time.Duration
	flushTimeout    time.Duration
}

// NewRecorder starts the recorder's worker goroutine.
func NewRecorder(db *gorm.DB, cfg config.AuditConfig, log *zap.Logger) *Recorder {
	r := &Recorder{
		db:              db,
		log:             log.With(zap.String("component", "audit")),
		queue:           make(chan Entry, cfg.QueueSize),
		done:            make(chan struct{}),
		preImageTimeout: cfg.PreImageTimeout,
		flushTimeout:    cfg.FlushTimeout,
	}
	go r.run()
	return r
}

// Record enqueues one entry without blocking.
func (r *Recorder) Record(e Entry) {
	select {
	case r.queue <- e:
	default:
		r.log.Warn("audit queue full, dropping record",
			zap.String("action", e.Record.Action),
			zap.String("endpoint", e.Record.Endpoint))
	}
}

// Close stops accepting entries and drains the queue, waiting at most the
// configured flush timeout for in-flight records to persist.
func (r *Recorder) Close() {
	close(r.queue)
	select {
	case <-r.done:
	case <-time.After(r.flushTimeout):
		r.log.Warn("audit flush timed out, records may be lost")
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		r.persist(e)
	}
}

func (r *Recorder) persist(e Entry) {
	if e.PreImage != nil {
		select {
		case raw, ok := <-e.PreImage:
			if ok && len(raw) > 0 {
				s := string(raw)
				e.Record.OldData = &s
			}
		case <-time.After(r.preImageTimeout):
			r.log.Debug("pre-image fetch timed out",
				zap.String("entityType", e.Record.EntityType),
				zap.String("entityId", e.Record.EntityID))
		}
	}

	if e.Record.CreatedAt.IsZero() {
		e.Record.CreatedAt = time.Now()
	}
	if err := r.db.Create(&e.Record).Error; err != nil {
		r.log.Error("audit record write failed",
			zap.String("action", e.Record.Action),
			zap.String("endpoint", e.Record.Endpoint),
			zap.Error(err))
	}
}
