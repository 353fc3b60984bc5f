package config

import (
	"github.com/tauraamui/framerecorder/pkg/configdef"
)

func DefaultResolver() configdef.Resolver {
	return defaultResolver{}
}

func DefaultCreateResolver() configdef.CreateResolver {
	return defaultCreateResolver{}
}

type defaultResolver struct{}

func (d defaultResolver) Resolve() (configdef.Values, error) {
	return load()
}

type defaultCreateResolver struct {
	defaultCreator
	defaultResolver
}
