// Package resp provides HTTP response helpers that keep the console's JSON
// bodies consistent.
//
// Success bodies are the payload itself, or {"message": "..."} when the
// payload is a string. Failure bodies carry a business code:
//
//	{
//	  "code": -409,
//	  "message": "Export is already running",
//	  "errors": {...}
//	}
//
// Usage:
//
//	resp.Success(w, snapshot)
//	resp.WithStatusCode(w, http.StatusCreated, job)
//	resp.Fail(w, resp.Conflict("export already running"))
package resp
