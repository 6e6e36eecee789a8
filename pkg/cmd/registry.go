// Package cmd provides common initialization for the engine binaries.
package cmd

import (
	"log/slog"

	"github.com/bidflow/bidflow/pkg/actions/addtag"
	"github.com/bidflow/bidflow/pkg/actions/assignuser"
	"github.com/bidflow/bidflow/pkg/actions/movestage"
	"github.com/bidflow/bidflow/pkg/actions/notify"
	"github.com/bidflow/bidflow/pkg/actions/teaming"
	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/registry"
)

// NewRegistry builds the action handler registry with every native action
// bound to the platform client.
func NewRegistry(logger *slog.Logger, platform crm.Client) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(movestage.NewFactory(platform))
	reg.RegisterAction(assignuser.NewFactory(platform))
	reg.RegisterAction(addtag.NewFactory(platform))
	reg.RegisterAction(notify.NewFactory(platform))
	reg.RegisterAction(teaming.NewFactory(platform))

	return reg
}

// NewPlatformClient selects the platform client: HTTP against a real platform
// API, in-memory when no base URL is configured (development only).
func NewPlatformClient(baseURL, token string, logger *slog.Logger) crm.Client {
	if baseURL == "" {
		logger.Warn("No platform base URL configured, using in-memory platform client")

		return crm.NewMemory()
	}

	return crm.NewHTTPClient(baseURL, token, logger)
}
