// Package e2e holds end-to-end tests that require external dependencies
// (Docker, neo-express, Supabase, etc.). These tests are opt-in and are run
// via the Makefile target: `make test-e2e`.
package e2e
