// Package logging provides structured logging for the storybook backend.
//
// It wraps zap with lumberjack-based file rotation, a console+file tee, and
// automatic redaction of gateway tokens and API keys before anything reaches
// a sink. Every component in the service logs through *logging.Logger.
package logging
