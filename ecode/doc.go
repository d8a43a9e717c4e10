// Package ecode defines the business error codes carried in API failure
// responses and their mapping to HTTP statuses.
//
// Code ranges:
//   - 0: success
//   - -400 to -499: request and resource errors
//   - -500+: server errors
//   - -1000 and below: console specific errors
//
// Usage with the resp package:
//
//	resp.Fail(w, &resp.Exception{
//	    Status:  ecode.ToHTTPStatus(ecode.ExportRunning),
//	    Code:    ecode.ExportRunning,
//	    Message: ecode.Text(ecode.ExportRunning),
//	})
package ecode
