package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "parley"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Parley - terminal client for support conversations",
		Long:          "Parley is a terminal client for live support conversations between participants and agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.AddCommand(
		NewLoginCmd(),
		NewRegisterCmd(),
		NewDashboardCmd(),
		NewWhoamiCmd(),
		NewLogoutCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
