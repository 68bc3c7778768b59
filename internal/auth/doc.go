// Package auth provides users, passwords and access tokens for the socket
// controller.
//
// It implements a 3-level permission model (NONE → USER → ADMIN) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Stateless JWT access tokens (HS256) carrying the user's permission
//   - A users dataset persisted through the same JSON store as the socket
//     registry, with its own lock
//
// New accounts start at NONE and can do nothing until an administrator
// raises them. On first boot the dataset is seeded with an "admin" account.
package auth
