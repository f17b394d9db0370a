// Package http provides HTTP handlers and middleware for the timetable API.
//
// Requests arrive already authenticated by the gateway, which forwards the
// acting owner in the `X-Owner-ID` header. Times travel as "HH:MM" wall clock
// strings and weekdays as integers with 0 meaning Sunday.
//
// The router exposes the following endpoints:
//   - GET /sessions, POST /sessions: list the owner's sessions together with
//     overlap warnings, or create a session from the `createSessionRequest` body.
//   - PATCH /sessions/{id}/move, PATCH /sessions/{id}/resize,
//     PATCH /sessions/{id}/color: change placement, end time or color tag.
//   - POST /sessions/{id}/duplicate, DELETE /sessions/{id}.
//   - GET /sessions/next: the owner's next upcoming session, or null.
//   - GET /presets, POST /presets: list visible presets or snapshot the
//     current timetable into a new private preset.
//   - POST /presets/{id}/apply: replace the timetable with the preset's items.
//   - POST /presets/{id}/visibility, DELETE /presets/{id}: owner only.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
