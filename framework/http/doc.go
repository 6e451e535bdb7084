// Package http provides JSON response helpers for handlers served by the
// framework router.
//
//	res := gohttp.NewResponse(w)
//	res.Success(map[string]any{"greeting": "Hello, Ada"})  // 200 {"data": {...}}
//	res.Error(http.StatusBadRequest, "name is required")   // 400 {"message": "..."}
//
// ResolutionError reports a handler the service locator could not build,
// adding the underlying error only when asked to (debug mode).
package http
