// Package alerts implements the rule evaluation engine and webhook
// delivery for reactor alerting. Rules are evaluated against reactor
// snapshots; webhooks are delivered to Slack, Teams, or generic HTTP
// targets.
package alerts
