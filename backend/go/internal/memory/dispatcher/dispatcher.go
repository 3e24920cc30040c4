package dispatcher

import (
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrClosed 表示派发器已经关闭。
var ErrClosed = errors.New("dispatcher: closed")

// Dispatcher 把记忆提取任务交给后台执行，Dispatch 不阻塞调用方。
type Dispatcher interface {
	Dispatch(job models.ExtractionJob)
	Close(ctx context.Context) error
}

// Handler 执行一次提取任务，*service.MemoryService 的 ExtractMemoriesFromMessage 满足它。
type Handler func(ctx context.Context, job models.ExtractionJob)

// Pool 是进程内的有界协程池。队列满时丢弃任务并记录警告。
type Pool struct {
	jobs    chan models.ExtractionJob
	handle  Handler
	timeout time.Duration
	logger  *logger.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewPool 启动 workers 个协程消费队列。
func NewPool(handle Handler, workers, queueSize int, jobTimeout time.Duration, log *logger.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	p := &Pool{
		jobs:    make(chan models.ExtractionJob, queueSize),
		handle:  handle,
		timeout: jobTimeout,
		logger:  log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Dispatch 尝试入队，不等待。
func (p *Pool) Dispatch(job models.ExtractionJob) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.WithField("user_id", job.UserID).Warn("extraction dispatcher closed, job dropped")
		return
	}
	select {
	case p.jobs <- job:
	default:
		p.logger.WithField("user_id", job.UserID).Warn("extraction queue full, job dropped")
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job models.ExtractionJob) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", fmt.Sprint(r)).Error("memory extraction panicked")
		}
	}()
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	p.handle(ctx, job)
}

// Close 停止接收新任务，等待队列中剩余的任务执行完，或者 ctx 结束。
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publisher 是消息总线的写入端，*kafka.JSONPublisher 满足它。
type Publisher interface {
	Publish(ctx context.Context, key string, v interface{}) error
}

// KafkaDispatcher 把任务投递到消息总线，由 memory_service 消费。
// 以 userID 为分区键，同一用户的任务保持顺序。
type KafkaDispatcher struct {
	pub     Publisher
	timeout time.Duration
	logger  *logger.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewKafkaDispatcher creates a dispatcher backed by a message bus.
func NewKafkaDispatcher(pub Publisher, timeout time.Duration, log *logger.Logger) *KafkaDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaDispatcher{pub: pub, timeout: timeout, logger: log}
}

func (d *KafkaDispatcher) Dispatch(job models.ExtractionJob) {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	// wg.Add 必须和 Close 中的 Wait 互斥
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WithField("user_id", job.UserID).Warn("extraction dispatcher closed, job dropped")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.pub.Publish(ctx, strconv.FormatUint(uint64(job.UserID), 10), job); err != nil {
			d.logger.WithErr(err).WithField("user_id", job.UserID).Warn("failed to publish extraction job")
		}
	}()
}

// Close 停止接收新任务并等待已发出的投递完成。
func (d *KafkaDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
