package events

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/pos-harmonizer/internal/pkg/logger"
	"github.com/ignite/pos-harmonizer/internal/storage"
	"github.com/ignite/pos-harmonizer/internal/validate"
)

// Reporter receives validation verdicts for delivery to the ops channel.
type Reporter interface {
	Report(ctx context.Context, v validate.Verdict, artifact, detail string) error
}

// sqsAPI is the subset of the SQS client the consumer uses.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls the artifact-event queue, validates each eligible
// "latest" artifact and reports the verdict. Every artifact produces a
// verdict: fetch and decode failures become invalid verdicts with detail,
// never silent drops.
type Consumer struct {
	sqsClient       sqsAPI
	queueURL        string
	store           storage.BlobStore
	reporter        Reporter
	processedPrefix string
	latestPrefix    string
	done            chan struct{}
}

// NewConsumer creates a Consumer bound to the given queue and store.
func NewConsumer(sqsClient *sqs.Client, queueURL string, store storage.BlobStore, reporter Reporter, processedPrefix, latestPrefix string) *Consumer {
	return &Consumer{
		sqsClient:       sqsClient,
		queueURL:        queueURL,
		store:           store,
		reporter:        reporter,
		processedPrefix: processedPrefix,
		latestPrefix:    latestPrefix,
		done:            make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (c *Consumer) Start(ctx context.Context) {
	logger.Info("artifact event consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

// Stop signals the polling loop to exit.
func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("sqs receive failed", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			if msg.Body == nil {
				c.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}
			if err := c.handleBody(ctx, []byte(*msg.Body)); err != nil {
				logger.Error("event handling failed, leaving message for redelivery", "error", err)
				continue
			}
			c.deleteMessage(ctx, msg.ReceiptHandle)
		}
	}
}

// handleBody processes one queue message body. It returns an error only
// when the verdict could not be reported; an undeliverable report keeps
// the message on the queue.
func (c *Consumer) handleBody(ctx context.Context, body []byte) error {
	refs, err := ParseObjectCreated(body)
	if err != nil {
		// Unparseable bodies are dropped: redelivery cannot fix them.
		logger.Warn("dropping unparseable event body", "error", err)
		return nil
	}

	for _, ref := range refs {
		artifact := strings.TrimPrefix(ref.Key, c.processedPrefix+"/")
		if !EligibleArtifact(artifact, c.latestPrefix) {
			continue
		}

		verdict, detail := c.validateArtifact(ctx, ref.Key, artifact)
		if err := c.reporter.Report(ctx, verdict, artifact, detail); err != nil {
			return err
		}
	}
	return nil
}

// validateArtifact fetches and validates one artifact, folding fetch
// failures into an invalid verdict with detail.
func (c *Consumer) validateArtifact(ctx context.Context, key, artifact string) (validate.Verdict, string) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Error("artifact fetch failed", "key", key, "error", err)
		return validate.Verdict{DeviceID: "Unknown", Reason: validate.ReasonNotAnObject}, err.Error()
	}

	verdict := validate.ValidateJSON(data)
	logger.Info("artifact validated",
		"artifact", artifact, "device_id", verdict.DeviceID, "status", verdict.Status())
	return verdict, ""
}

func (c *Consumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		logger.Error("sqs delete failed", "error", err)
	}
}
