package accesslog

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Recorder 接收访问通知；实现必须立即返回，不得阻塞或影响响应。
type Recorder interface {
	Record(packageName, version string)
	Close() error
}

// NopRecorder 在 USE_DB 关闭时使用，丢弃所有通知。
type NopRecorder struct{}

func (NopRecorder) Record(string, string) {}

func (NopRecorder) Close() error { return nil }

const defaultWriteTimeout = 5 * time.Second

// AsyncRecorder 通过有界队列 + 单个后台 worker 写入 Writer。
// 队列写满时丢弃新记录并告警，写入失败只记录日志。
type AsyncRecorder struct {
	writer  Writer
	logger  logrus.FieldLogger
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Entry
	done   chan struct{}
}

// NewAsyncRecorder 创建并启动后台 worker，queueSize <= 0 时使用 1。
func NewAsyncRecorder(writer Writer, logger logrus.FieldLogger, queueSize int) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 1
	}
	r := &AsyncRecorder{
		writer:  writer,
		logger:  logger,
		timeout: defaultWriteTimeout,
		now:     time.Now,
		queue:   make(chan Entry, queueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record 把访问记录放入队列后立即返回。
func (r *AsyncRecorder) Record(packageName, version string) {
	entry := Entry{PackageName: packageName, Version: version, AccessTime: r.now()}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.logger.WithFields(logrus.Fields{
			"action":  "access_log",
			"package": packageName,
			"version": version,
		}).Warn("access_log_queue_full")
	}
}

// Close 停止接收新记录，并等待队列中剩余记录写完。
func (r *AsyncRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return nil
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *AsyncRecorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.writer.Insert(ctx, entry); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action":  "access_log",
			"package": entry.PackageName,
			"version": entry.Version,
		}).Error("access_log_write_failed")
	}
}
