package consumer

import (
	"Jarvis_chat/backend/go/internal/models"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader 依次返回预置消息，取完后阻塞到 ctx 结束。
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func TestConsumerHandlesAndCommitsEveryMessage(t *testing.T) {
	good, err := json.Marshal(models.ExtractionJob{UserID: 9, Message: "I like jazz", Role: models.SpeakerUser})
	require.NoError(t, err)
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: good},
		{Offset: 2, Value: []byte("{not json")},
	}}

	var mu sync.Mutex
	var got []models.ExtractionJob
	c := NewKafkaConsumer(reader, func(ctx context.Context, job models.ExtractionJob) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, job)
	}, time.Second, logger.New("test", "", ""))

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	assert.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-c.Done()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, uint(9), got[0].UserID)
	assert.Equal(t, []int64{1, 2}, reader.commits())
}
