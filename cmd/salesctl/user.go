package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"salesboard/auth"
	"salesboard/config"
	"salesboard/model"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminName     = "Administrateur"
	defaultAdminPassword = "admin123"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard credentials",
}

var userFlags struct {
	username    string
	password    string
	displayName string
	admin       bool
}

func openUsers() (*auth.Store, error) {
	return auth.Open(config.GetConfig().AuthDBPath)
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or replace a credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openUsers()
		if err != nil {
			return err
		}
		defer store.Close()

		role := model.RoleUser
		if userFlags.admin {
			role = model.RoleAdmin
		}
		if err := store.CreateOrReplace(cmd.Context(), auth.CredentialInput{
			Username:    userFlags.username,
			Password:    userFlags.password,
			DisplayName: userFlags.displayName,
			Role:        role,
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "utilisateur %s enregistré (%s)\n", userFlags.username, role)
		return nil
	},
}

var resetAdminFlags struct {
	password string
}

var userResetAdminCmd = &cobra.Command{
	Use:   "reset-admin",
	Short: "Recreate the admin account",
	Long: `Upserts the canonical admin account (admin / Administrateur / role admin).
The password comes from --password, then SALESBOARD_ADMIN_PASSWORD, then the
well-known default, in which case a warning is logged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := resetAdminFlags.password
		if password == "" {
			password = os.Getenv("SALESBOARD_ADMIN_PASSWORD")
		}
		if password == "" {
			password = defaultAdminPassword
			config.GetLogger().WithField("module", "salesctl").Warn("admin password reset to the default, change it before sharing the dashboard")
		}

		store, err := openUsers()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.CreateOrReplace(cmd.Context(), auth.CredentialInput{
			Username:    defaultAdminUsername,
			Password:    password,
			DisplayName: defaultAdminName,
			Role:        model.RoleAdmin,
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "compte %s réinitialisé\n", defaultAdminUsername)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials without their hashes",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openUsers()
		if err != nil {
			return err
		}
		defer store.Close()
		users, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "UTILISATEUR\tNOM\tRÔLE")
		for _, u := range users {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.DisplayName, u.Role)
		}
		return tw.Flush()
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openUsers()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Delete(cmd.Context(), args[0])
	},
}

func init() {
	userCreateCmd.Flags().StringVarP(&userFlags.username, "username", "u", "", "login name")
	userCreateCmd.Flags().StringVarP(&userFlags.password, "password", "p", "", "plaintext password, stored hashed")
	userCreateCmd.Flags().StringVar(&userFlags.displayName, "display-name", "", "full name shown in the dashboard")
	userCreateCmd.Flags().BoolVar(&userFlags.admin, "admin", false, "grant the admin role")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("password")

	userResetAdminCmd.Flags().StringVarP(&resetAdminFlags.password, "password", "p", "", "new admin password")

	userCmd.AddCommand(userCreateCmd, userResetAdminCmd, userListCmd, userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}
