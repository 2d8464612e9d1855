// Package mindenit fetches timetables and reference lists from the Mindenit schedule API
// and normalizes them into timetable.Timetable batches ready to be saved into a store.
//
// Every endpoint except health wraps its payload in an envelope:
//
//	{"data": ..., "success": true, "error": null, "message": null, "statusCode": 200}
//
// A response without data is reported as ErrBadResponse, carrying the most descriptive detail
// the envelope offers. Transport failures, 5xx and 429 responses are additionally marked with
// ErrUpstreamUnavailable so callers can decide to retry them.
//
// Usage:
//
//	client, _ := mindenit.NewClient(mindenit.WithTimeout(30 * time.Second))
//	tt, err := client.Timetable(ctx, mindenit.GroupSource(10887))
package mindenit
