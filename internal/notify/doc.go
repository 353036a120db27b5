// Package notify posts a summary to webhooks after a preload script is
// written.
//
// Supported webhook types:
//
//   - slack: Slack incoming webhook ({"text": ...})
//   - teams: Microsoft Teams MessageCard
//   - http:  generic POST of the Event as JSON
//
// Delivery failures are logged and never fail the build that triggered them.
package notify
