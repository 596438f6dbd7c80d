// internal/workers/decisioning/notify-underwriting-review/handler.go
package notifyunderwritingreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	commonerrors "loan-workers/internal/common/errors"
	"loan-workers/internal/common/logger"
	"loan-workers/internal/common/metrics"
	"loan-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-underwriting-review"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// SendError reports which channel failed and which channels were already
// delivered. It matches ErrNotificationSendFailed.
type SendError struct {
	Channel string
	Sent    []string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNotificationSendFailed, e.Channel, e.Err)
}

func (e *SendError) Is(target error) bool {
	return target == ErrNotificationSendFailed
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	sesClient SESService
	snsClient SNSService
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		sesClient: sesClient,
		snsClient: snsClient,
		errors:    commonerrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.JobStarted(TaskType)

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		done(string(h.errors.HandleJobError(context.Background(), client, job, commonerrors.NewParseError(err))))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		var sendErr *SendError
		if errors.As(err, &sendErr) {
			stdErr := commonerrors.NewNotificationSendFailedError(sendErr.Channel, sendErr.Err)
			// Fail variables land on the job scope, so the retry sees which channels to skip.
			stdErr.Metadata = map[string]interface{}{"notifiedChannels": sendErr.Sent}
			err = stdErr
		}
		done(string(h.errors.HandleJobError(context.Background(), client, job, err)))
		return
	}

	h.completeJob(client, job, output)
	done("")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)

	if models.OutcomeFrom(input.Status) != models.FlaggedForReview {
		h.logger.Debug("decision does not need review", map[string]interface{}{
			"correlationId": input.CorrelationID,
			"status":        input.Status,
		})
		return &Output{NotificationID: notificationID, Status: StatusSkipped, Channels: []string{}, SentAt: sentAt}, nil
	}

	if !h.config.Enabled {
		h.logger.Info("review notifications disabled", map[string]interface{}{
			"correlationId": input.CorrelationID,
		})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, Channels: []string{}, SentAt: sentAt}, nil
	}

	data := map[string]interface{}{
		"applicantId":   applicantRef(input.ApplicantID),
		"reason":        input.Reason,
		"ruleId":        input.RuleID,
		"correlationId": input.CorrelationID,
	}
	subject := renderTemplate(subjectTemplate, data)
	body := renderTemplate(bodyTemplate, data)

	channels := []string{}
	delivered := make(map[string]bool, len(input.NotifiedChannels))
	for _, c := range input.NotifiedChannels {
		delivered[c] = true
	}

	if h.config.TopicARN != "" {
		if delivered[ChannelSNS] {
			h.logger.Debug("review already published", map[string]interface{}{"correlationId": input.CorrelationID})
		} else if err := h.publishReview(ctx, input, subject, body); err != nil {
			h.logger.Error("review publish failed", map[string]interface{}{
				"error":    err,
				"topicArn": h.config.TopicARN,
			})
			return nil, &SendError{Channel: ChannelSNS, Sent: channels, Err: err}
		}
		channels = append(channels, ChannelSNS)
	}

	if h.config.EmailEnabled && len(h.config.ToEmails) > 0 {
		if delivered[ChannelEmail] {
			h.logger.Debug("review email already sent", map[string]interface{}{"correlationId": input.CorrelationID})
		} else if err := h.sendEmail(ctx, subject, body); err != nil {
			h.logger.Error("review email failed", map[string]interface{}{
				"error": err,
				"to":    h.config.ToEmails,
			})
			return nil, &SendError{Channel: ChannelEmail, Sent: channels, Err: err}
		}
		channels = append(channels, ChannelEmail)
	}

	status := StatusDisabled
	if len(channels) > 0 {
		status = StatusSent
	}

	h.logger.Info("underwriting review requested", map[string]interface{}{
		"correlationId":  input.CorrelationID,
		"notificationId": notificationID,
		"channels":       channels,
	})

	return &Output{
		NotificationID: notificationID,
		Status:         status,
		Channels:       channels,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) publishReview(ctx context.Context, input *Input, subject, body string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"ruleId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(input.RuleID),
			},
			"correlationId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(input.CorrelationID),
			},
		},
	})
	return err
}

func (h *Handler) sendEmail(ctx context.Context, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: h.config.ToEmails,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func applicantRef(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", fmt.Sprint(v))
	}
	return result
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
