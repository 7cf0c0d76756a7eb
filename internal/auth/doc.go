// Package auth provides authentication for the Inspire bridge HTTP API.
//
// The model is deliberately small for a single-household bridge:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Short-lived JWT access tokens (HS256, signature-only validation)
//   - Two roles: admin (full control) and viewer (read-only)
//
// There are no refresh tokens and no per-resource grants. A viewer can
// read thermostat state and history; an admin can additionally send
// commands and manage users. The initial admin account is seeded on
// first boot from configuration.
package auth
