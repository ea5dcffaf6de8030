// Package http provides HTTP handlers and middleware for the meeting presence API.
//
// The router exposes the following endpoints:
//   - POST /meetings, GET /meetings, GET /meetings/{id}, DELETE /meetings/{id}:
//     catalog endpoints exchanging the `meetingDTO` payload defined in
//     meeting_handler.go. Times are RFC 3339 strings.
//   - POST /meetings/{id}/activate: activates a catalog meeting immediately.
//     Response: {"meeting_id","activated"}; activated is false when the
//     meeting was already active.
//   - GET /meetings/active: {"meeting_ids"} of every active meeting.
//   - GET /meetings/nearby?email=&x=&y=: {"meeting_ids"} of active meetings
//     the email is invited to within the configured radius of (x, y).
//   - POST /meetings/{id}/join?email=, POST /meetings/{id}/leave?email=,
//     POST /meetings/{id}/end: membership transitions, 204 No Content on success.
//   - GET /meetings/{id}/joined: {"meeting_id","participants"}.
//   - POST /meetings/{id}/chat: body {"email","message"}; only joined
//     participants may post.
//   - GET /meetings/{id}/chat, GET /meetings/{id}/chat/users/{email},
//     GET /users/{email}/messages: {"meeting_id","messages"} in append order.
//   - GET /debug/active: {"meetings"} snapshot of the active cache with each
//     meeting's window, invited and joined participants.
//   - GET /healthz: liveness and storage reachability.
//
// Errors are rendered as {"error_code","message"} by the shared responder.
package http
