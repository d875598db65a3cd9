package service

import (
	"context"
	"testing"
	"time"

	"support-flow-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedRunsReachProcessRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer pubSub.Close()

	inquiries := &recordingInquiryService{processed: make(chan string, 4)}
	consumer := NewConsumerService(pubSub, fastWorker.Topic, inquiries, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	queue := NewPublisherService(fastWorker.Topic, pubSub)
	require.NoError(t, queue.Enqueue(ctx, "run-42"))

	select {
	case id := <-inquiries.processed:
		assert.Equal(t, "run-42", id)
	case <-time.After(2 * time.Second):
		t.Fatal("run was not processed")
	}
}

func TestInvalidRunMessagesAreDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer pubSub.Close()

	inquiries := &recordingInquiryService{processed: make(chan string, 4)}
	consumer := NewConsumerService(pubSub, fastWorker.Topic, inquiries, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, pubSub.Publish(fastWorker.Topic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	require.NoError(t, pubSub.Publish(fastWorker.Topic, message.NewMessage(watermill.NewUUID(), []byte(`{"run_id":""}`))))
	require.NoError(t, NewPublisherService(fastWorker.Topic, pubSub).Enqueue(ctx, "run-7"))

	select {
	case id := <-inquiries.processed:
		assert.Equal(t, "run-7", id, "invalid messages never reach ProcessRun")
	case <-time.After(2 * time.Second):
		t.Fatal("valid run behind invalid messages was not processed")
	}
}
