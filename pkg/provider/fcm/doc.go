// Package fcm implements the push provider contract on top of the Firebase
// Cloud Messaging HTTP v1 API.
//
// Authentication uses a Google service-account JWT flow: the credentials
// JSON supplies the signing key, and the resulting oauth2 token source is
// refreshed transparently by the HTTP client. HTTP status codes are mapped
// to the shared provider error taxonomy so callers classify FCM failures
// the same way as any other backend.
package fcm
