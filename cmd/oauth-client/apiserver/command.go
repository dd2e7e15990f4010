package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/oauth-client/internal/business"
	"github.com/openkcm/oauth-client/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"OAuth Client API server",
		"OAuth Client API server hosts the browser facing login, callback, home and logout pages",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
