package logger

import (
	"go.uber.org/zap"
)

// New builds a zap logger for the given environment. Development gets the
// human-readable console encoder, everything else gets production JSON.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewNamed builds a logger and attaches the service name to every entry.
func NewNamed(env, service string) (*zap.Logger, error) {
	l, err := New(env)
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", service)), nil
}
