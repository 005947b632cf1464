package main

import (
	"encoding/json"
	"fmt"

	"github.com/rongwang/lease-contract-server/internal/api"
	"github.com/rongwang/lease-contract-server/internal/config"
	"github.com/rongwang/lease-contract-server/internal/models"
	"github.com/rongwang/lease-contract-server/internal/repository"
	"github.com/rongwang/lease-contract-server/internal/service"
	"github.com/rongwang/lease-contract-server/internal/utils"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")

			cfg := config.LoadConfig()
			token, err := api.IssueToken([]byte(cfg.Auth.JWTSecret), userID, cfg.Auth.TokenDuration)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("user", "", "user id placed in the token subject")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// withPostgres runs fn against the configured database
func withPostgres(fn func(repo *repository.PostgresRepository) error) error {
	cfg := config.LoadConfig()
	log := utils.NewLogger(cfg.Log)

	db, err := config.SetupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	return fn(repository.NewPostgresRepository(db))
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage directory users",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user to the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")

			return withPostgres(func(repo *repository.PostgresRepository) error {
				user := &models.User{ID: id, Email: email, Name: name}
				if err := repo.CreateUser(cmd.Context(), user); err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), user.ID)
				return nil
			})
		},
	}
	add.Flags().String("id", "", "user id (generated when empty)")
	add.Flags().String("email", "", "email address")
	add.Flags().String("name", "", "display name")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("name")

	cmd.AddCommand(add)
	return cmd
}

func propertyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage properties",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Register or update a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			owner, _ := cmd.Flags().GetString("owner")
			address, _ := cmd.Flags().GetString("address")

			return withPostgres(func(repo *repository.PostgresRepository) error {
				property := &models.Property{ID: id, OwnerID: owner, Address: address}
				if err := repo.UpsertProperty(cmd.Context(), property); err != nil {
					return fmt.Errorf("failed to save property: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), property.ID)
				return nil
			})
		},
	}
	add.Flags().String("id", "", "property id (generated when empty)")
	add.Flags().String("owner", "", "owner user id")
	add.Flags().String("address", "", "street address")
	_ = add.MarkFlagRequired("owner")
	_ = add.MarkFlagRequired("address")

	cmd.AddCommand(add)
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <contract-id> <hash>",
		Short: "Check a presented fingerprint against a stored contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			return withPostgres(func(repo *repository.PostgresRepository) error {
				verifier := service.NewVerificationService(repo, cfg.Contract.StoreTimeout)
				result, err := verifier.Verify(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}

				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}
}
