package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/kgbox/expiry-notifier/internal/config"
	"github.com/kgbox/expiry-notifier/internal/domain"
)

// Pusher sends push notifications via AWS SNS. Device tokens are SNS
// platform-endpoint ARNs; broadcast channels are topics under the configured
// ARN prefix.
type Pusher interface {
	SendBatch(ctx context.Context, tokens []string, msg *domain.Message) ([]domain.SendOutcome, error)
	SendToChannel(ctx context.Context, channelID string, msg *domain.Message) (string, error)
}

type pusher struct {
	client         *sns.Client
	topicARNPrefix string
}

func NewPusher(cfg *config.Config) (Pusher, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}

	return &pusher{
		client:         sns.NewFromConfig(awsCfg, clientOpts...),
		topicARNPrefix: cfg.SNSTopicARNPrefix,
	}, nil
}

// SendBatch publishes the message to every endpoint and collects a
// per-endpoint outcome. Per-endpoint failure never fails the batch; the
// returned error is reserved for payload construction.
func (p *pusher) SendBatch(ctx context.Context, tokens []string, msg *domain.Message) ([]domain.SendOutcome, error) {
	payload, err := buildPayload(msg)
	if err != nil {
		return nil, fmt.Errorf("build push payload: %w", err)
	}

	outcomes := make([]domain.SendOutcome, 0, len(tokens))
	for _, token := range tokens {
		out, err := p.client.Publish(ctx, &sns.PublishInput{
			TargetArn:        aws.String(token),
			Message:          aws.String(payload),
			MessageStructure: aws.String("json"),
		})
		if err != nil {
			outcomes = append(outcomes, domain.SendOutcome{
				Token:     token,
				Err:       err,
				Permanent: isPermanent(err),
			})
			continue
		}
		outcomes = append(outcomes, domain.SendOutcome{
			Token:     token,
			MessageID: aws.ToString(out.MessageId),
		})
	}
	return outcomes, nil
}

// SendToChannel publishes to the tenant broadcast topic and returns the
// message id.
func (p *pusher) SendToChannel(ctx context.Context, channelID string, msg *domain.Message) (string, error) {
	payload, err := buildPayload(msg)
	if err != nil {
		return "", fmt.Errorf("build push payload: %w", err)
	}
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn:         aws.String(p.topicARNPrefix + channelID),
		Message:          aws.String(payload),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

// isPermanent reports whether a publish failure means the endpoint
// registration itself is invalid. Anything else (throttling, internal
// errors) is transient and retried naturally on the next run.
func isPermanent(err error) bool {
	var disabled *types.EndpointDisabledException
	var notFound *types.NotFoundException
	var invalid *types.InvalidParameterException
	return errors.As(err, &disabled) || errors.As(err, &notFound) || errors.As(err, &invalid)
}

// buildPayload renders the SNS protocol-fanout JSON envelope with an FCM
// body carrying the visible notification and the data payload.
func buildPayload(msg *domain.Message) (string, error) {
	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{
			"title": msg.Title,
			"body":  msg.Body,
		},
		"data": msg.Data,
	})
	if err != nil {
		return "", err
	}
	envelope, err := json.Marshal(map[string]string{
		"default": msg.Body,
		"GCM":     string(gcm),
	})
	if err != nil {
		return "", err
	}
	return string(envelope), nil
}
