// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /api/bookings: creates a booking. Body: {"room_name","date",
//     "start_time","end_time","purpose"}. Responds 200 with the stored record
//     {"id","room_name","date","start_time","end_time","purpose"}.
//   - GET /api/bookings?date=YYYY-MM-DD: lists the bookings of one day as
//     {"id","room_name","start_time","end_time","purpose"} entries.
//   - GET /api/bookings/{id}: returns one booking.
//   - DELETE /api/bookings/{id}: cancels a booking and responds
//     {"message":"Đã xóa đặt phòng"}.
//   - GET /healthz and GET /readyz: liveness and storage readiness.
//
// Errors are returned as {"detail": "..."} with user facing Vietnamese text,
// except validation failures which use {"detail": [{"loc": [...], "msg": "..."}]}
// with status 422.
package http
