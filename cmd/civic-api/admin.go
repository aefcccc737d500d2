package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/activitymap"
	"github.com/goliatone/go-civic-auth/api"
)

const envAdminPassword = "CIVIC_ADMIN_PASSWORD"

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrator account management",
	Long:  `Administrators cannot self register over HTTP; they are provisioned here.`,
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an ADMIN account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv(envAdminPassword)
		}

		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		a, err := api.New(cfg, db,
			api.WithLoggerProvider(loggers{lgr}),
			api.WithActivitySink(activitymap.LogSink(loggers{lgr}.GetLogger("activity"),
				activitymap.WithActorFallback("cli"),
			)),
		)
		if err != nil {
			return err
		}

		principal, err := a.Credentials.CreateAdmin(ctx, auth.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", principal.Role, principal.Username, principal.ID)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().String("username", "", "Admin username")
	adminCreateCmd.Flags().String("email", "", "Admin email")
	adminCreateCmd.Flags().String("password", "", "Admin password (env: "+envAdminPassword+")")
	_ = adminCreateCmd.MarkFlagRequired("username")
	_ = adminCreateCmd.MarkFlagRequired("email")

	adminCmd.AddCommand(adminCreateCmd)
}
