package consumer

import (
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader 是消费者组读取端，*kafka.Reader 满足它。
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Handler 处理一条提取任务。
type Handler func(ctx context.Context, job models.ExtractionJob)

// KafkaConsumer 从主题中读取提取任务并交给记忆服务处理。
type KafkaConsumer struct {
	reader     Reader
	handle     Handler
	jobTimeout time.Duration
	logger     *logger.Logger
	done       chan struct{}
}

// NewKafkaConsumer creates a new KafkaConsumer.
func NewKafkaConsumer(reader Reader, handle Handler, jobTimeout time.Duration, logger *logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		handle:     handle,
		jobTimeout: jobTimeout,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start 在后台启动消费循环，ctx 取消后退出。
func (c *KafkaConsumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				c.logger.WithErr(err).Error("failed to fetch message")
				time.Sleep(time.Second)
				continue
			}

			var job models.ExtractionJob
			if err := json.Unmarshal(msg.Value, &job); err != nil {
				// 无法解析的消息也要提交，否则会一直被重复投递
				c.logger.WithErr(err).WithField("offset", msg.Offset).Error("failed to unmarshal extraction job")
			} else {
				c.process(ctx, job)
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.WithErr(err).Error("failed to commit message")
			}
		}
	}()
}

// Done 在消费循环退出后关闭。
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) process(ctx context.Context, job models.ExtractionJob) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithField("user_id", job.UserID).Error("extraction job panicked")
		}
	}()
	if c.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.jobTimeout)
		defer cancel()
	}
	c.handle(ctx, job)
}
