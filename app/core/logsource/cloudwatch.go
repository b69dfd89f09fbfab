package logsource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	config "deploypilot/app/configs"
)

// FilterLogEventsAPI is the slice of the CloudWatch Logs client we use.
type FilterLogEventsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

type CloudWatch struct {
	api           FilterLogEventsAPI
	group         string
	eventLimit    int32
	filterPattern string
	now           func() time.Time
}

func NewCloudWatch(ctx context.Context, cfg config.LogsConfig) (*CloudWatch, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(cfg.AWSRegion) != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewCloudWatchWithAPI(cloudwatchlogs.NewFromConfig(awsCfg), cfg), nil
}

// NewCloudWatchWithAPI exists for tests.
func NewCloudWatchWithAPI(api FilterLogEventsAPI, cfg config.LogsConfig) *CloudWatch {
	limit := cfg.EventLimit
	if limit <= 0 {
		limit = 1000
	}
	return &CloudWatch{
		api:           api,
		group:         cfg.Group,
		eventLimit:    int32(limit),
		filterPattern: cfg.FilterPattern,
		now:           time.Now,
	}
}

// FetchWindow pulls up to the configured event limit from the last
// hoursBack hours and joins the messages into one block. An empty
// window is not an error.
func (c *CloudWatch) FetchWindow(ctx context.Context, hoursBack int) (string, error) {
	if hoursBack <= 0 {
		hoursBack = 1
	}
	end := c.now()
	start := end.Add(-time.Duration(hoursBack) * time.Hour)

	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(c.group),
		StartTime:    aws.Int64(start.UnixMilli()),
		EndTime:      aws.Int64(end.UnixMilli()),
		Limit:        aws.Int32(c.eventLimit),
	}
	if strings.TrimSpace(c.filterPattern) != "" {
		input.FilterPattern = aws.String(c.filterPattern)
	}

	out, err := c.api.FilterLogEvents(ctx, input)
	if err != nil {
		return "", fmt.Errorf("filter log events in %s: %w", c.group, err)
	}

	lines := make([]string, 0, len(out.Events))
	for _, event := range out.Events {
		if event.Message == nil {
			continue
		}
		message := strings.TrimRight(*event.Message, "\n")
		if message == "" {
			continue
		}
		lines = append(lines, message)
	}
	return strings.Join(lines, "\n"), nil
}

// Truncate caps a log block before it goes into a prompt.
func Truncate(logs string, maxChars int) string {
	if maxChars <= 0 || len(logs) <= maxChars {
		return logs
	}
	return logs[:maxChars]
}
