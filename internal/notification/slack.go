package notification

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier handles sending notifications to Slack
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	enabled    bool
}

// NewSlackNotifier creates a new instance of SlackNotifier
func NewSlackNotifier(webhookURL, channel, username, iconEmoji string, enabled bool) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
		iconEmoji:  iconEmoji,
		enabled:    enabled && webhookURL != "",
	}
}

// SendRichNotification sends a message with attachments to Slack
func (s *SlackNotifier) SendRichNotification(title, message, color string, fields map[string]string) error {
	if s == nil || !s.enabled {
		return nil
	}

	attachmentFields := []slack.AttachmentField{}
	for k, v := range fields {
		attachmentFields = append(attachmentFields, slack.AttachmentField{
			Title: k,
			Value: v,
			Short: len(v) < 20, // Short fields are displayed side-by-side
		})
	}

	attachment := slack.Attachment{
		Title:      title,
		Text:       message,
		Color:      color, // "good", "warning", "danger" or a hex color code
		Fields:     attachmentFields,
		MarkdownIn: []string{"text", "fields"},
	}

	msg := &slack.WebhookMessage{
		Attachments: []slack.Attachment{attachment},
		Channel:     s.channel,
		Username:    s.username,
		IconEmoji:   s.iconEmoji,
	}

	return slack.PostWebhook(s.webhookURL, msg)
}

// NotifyHTTPError sends an error notification for HTTP errors
func (s *SlackNotifier) NotifyHTTPError(statusCode int, title string, err error, request *http.Request, context map[string]string) error {
	if s == nil || !s.enabled || err == nil {
		return nil
	}

	if context == nil {
		context = make(map[string]string)
	}

	context["Error"] = fmt.Sprintf("`%v`", err)

	if request != nil {
		context["Method"] = request.Method
		context["Path"] = request.URL.Path
		context["User-Agent"] = request.UserAgent()
		context["Remote IP"] = request.RemoteAddr
	}

	var color, emoji string
	switch {
	case statusCode >= 500:
		color, emoji = "danger", ":rotating_light:"
	case statusCode >= 400:
		color, emoji = "warning", ":warning:"
	default:
		color, emoji = "#3AA3E3", ":information_source:"
	}

	return s.SendRichNotification(
		fmt.Sprintf("%s %s (HTTP %d)", emoji, title, statusCode),
		"",
		color,
		context,
	)
}

// NotifyServerError for 500-level errors
func (s *SlackNotifier) NotifyServerError(err error, request *http.Request) error {
	return s.NotifyHTTPError(http.StatusInternalServerError, "Internal Server Error", err, request, nil)
}

// NotifyNotFound for 404 errors
func (s *SlackNotifier) NotifyNotFound(err error, request *http.Request) error {
	return s.NotifyHTTPError(http.StatusNotFound, "Not Found", err, request, nil)
}

// NotifyForbidden for 403 errors
func (s *SlackNotifier) NotifyForbidden(request *http.Request) error {
	return s.NotifyHTTPError(http.StatusForbidden, "Forbidden", fmt.Errorf("access forbidden"), request, nil)
}

// NotifyRateLimitExceeded for 429 errors
func (s *SlackNotifier) NotifyRateLimitExceeded(request *http.Request, retryAfter string) error {
	context := map[string]string{
		"Retry-After": retryAfter,
	}
	return s.NotifyHTTPError(http.StatusTooManyRequests, "Rate Limit Exceeded", fmt.Errorf("rate limit exceeded"), request, context)
}

// NotifyUploadFailure reports a photo that no strategy could store.
func (s *SlackNotifier) NotifyUploadFailure(fileName string, diagnostics []string, request *http.Request) error {
	context := map[string]string{
		"File":        fileName,
		"Diagnostics": strings.Join(diagnostics, "\n"),
	}
	return s.NotifyHTTPError(http.StatusInternalServerError, "Photo Upload Failed", fmt.Errorf("all upload strategies failed"), request, context)
}

// NotifyProvisionWarnings reports policies or settings that could not be asserted.
func (s *SlackNotifier) NotifyProvisionWarnings(container string, warnings []string) error {
	if len(warnings) == 0 {
		return nil
	}
	return s.NotifyWarning(
		"Storage Provisioning",
		fmt.Sprintf("%d warning(s) while provisioning `%s`", len(warnings), container),
		map[string]string{"Warnings": strings.Join(warnings, "\n")},
	)
}

// NotifyWarning for important warnings not tied to HTTP errors
func (s *SlackNotifier) NotifyWarning(title string, message string, context map[string]string) error {
	return s.SendRichNotification(":warning: "+title, message, "warning", context)
}
