package notify

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNS subjects are limited to 100 characters.
const maxSubjectLen = 100

type snsPublisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS broadcasts alerts to an SNS topic.
type SNS struct {
	TopicARN string
	Client   snsPublisher
}

// NewSNS loads AWS credentials from the default chain (env, shared config,
// Lambda role). It returns nil, nil when no topic is configured.
func NewSNS(ctx context.Context, topicARN string) (*SNS, error) {
	if topicARN == "" {
		return nil, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &SNS{TopicARN: topicARN, Client: sns.NewFromConfig(cfg)}, nil
}

func (s *SNS) Name() string { return "sns:" + s.TopicARN }

func (s *SNS) Send(ctx context.Context, subject, text string) error {
	if s.Client == nil {
		return errors.New("sns client not configured")
	}
	subject = truncateSubject(subject)
	in := &sns.PublishInput{
		TopicArn: aws.String(s.TopicARN),
		Message:  aws.String(text),
	}
	if subject != "" {
		in.Subject = aws.String(subject)
	}
	_, err := s.Client.Publish(ctx, in)
	return err
}

// truncateSubject cuts s to at most maxSubjectLen bytes without splitting a
// multi-byte character.
func truncateSubject(s string) string {
	if len(s) <= maxSubjectLen {
		return s
	}
	n := maxSubjectLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
