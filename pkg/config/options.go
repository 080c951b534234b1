package config

import (
	"github.com/devmock/devmock/pkg/engine"
	"github.com/devmock/devmock/pkg/rest"
)

// ToOptions converts the declarative engine section into engine options.
//
// Only the file-expressible subset is produced: declarative routes become
// filesystem-delegate handlers. Programmatic concerns (custom handler
// functions, middlewares, WebSocket handlers, metrics sinks) are attached
// by the caller before engine.New.
func (c *EngineConfig) ToOptions() engine.Options {
	opts := engine.Options{
		Disabled:       c.Disabled,
		Prefixes:       append([]string(nil), c.Prefixes...),
		FSDir:          c.FSDir,
		EnableWS:       c.EnableWS,
		Delay:          c.Delay,
		GatewayTimeout: c.GatewayTimeout,
		Pagination:     c.Pagination,
		Filters:        c.Filters,
		Unmatched:      engine.UnmatchedAction(c.UnmatchedAction),
	}

	if c.Parser.Disabled || c.Parser.MaxBodySize > 0 {
		opts.Parser = &rest.ParserConfig{
			Disabled:     c.Parser.Disabled,
			MaxBodyBytes: c.Parser.MaxBodySize.Int64(),
		}
	}

	for _, route := range c.Routes {
		method := route.Method
		if method == "" {
			method = "GET"
		}
		handler := &rest.Handler{
			Pattern:    route.Pattern,
			Method:     method,
			Disabled:   route.Disabled,
			Delay:      route.Delay,
			Pagination: route.Pagination,
			Filters:    route.Filters,
			FS: &rest.FilesystemHandle{
				PreReplace: append([]rest.Replacement(nil), route.PreReplace...),
			},
		}
		opts.Handlers = append(opts.Handlers, handler)
	}

	return opts
}
