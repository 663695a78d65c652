package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"outfitsquare/internal/config"
	"outfitsquare/internal/database"
	"outfitsquare/internal/importer"
	"outfitsquare/internal/repository"
	"outfitsquare/internal/transport/http"
	"outfitsquare/internal/transport/http/middleware"
)

const (
	Version = "0.1.0"
	appName = "outfitsquare"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Outfit Square social backend",
		Long: `Outfit Square serves friends, follows, privacy settings, outfit check
history and the public square feed for the outfit app.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.LoadConfig()
				if err != nil {
					return err
				}
				db, err := database.Connect(cfg)
				if err != nil {
					return err
				}
				return db.Close()
			},
		},
		importCmd(),
		tokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func serve() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return http.Run(cfg)
}

func importCmd() *cobra.Command {
	var dir, owner string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import legacy JSON documents from a directory",
		Long: `Import reads all_users.json, friends.json, square_posts.json and
history_<userId>.json from --dir. friends.json belongs to --owner.
A document that is missing or corrupt is reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			im := importer.New(db, importer.Repositories{
				Directory: repository.NewDirectoryRepository(db),
				Friends:   repository.NewFriendRepository(db),
				Follows:   repository.NewFollowRepository(db),
				Privacy:   repository.NewPrivacyRepository(db),
				History:   repository.NewHistoryRepository(db),
				Posts:     repository.NewPostRepository(db),
				Comments:  repository.NewCommentRepository(db),
				Ratings:   repository.NewRatingRepository(db),
			})

			reports, err := im.ImportDir(context.Background(), dir, owner)
			if err != nil {
				return err
			}
			for _, r := range reports {
				line := fmt.Sprintf("%-24s %-9s records=%d skipped=%d repaired=%d", r.Document, r.Status, r.Records, r.Skipped, r.Repaired)
				if r.Reason != nil {
					line += " reason=" + r.Reason.Error()
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory holding the legacy JSON documents")
	cmd.Flags().StringVar(&owner, "owner", "", "User ID that owns friends.json")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// tokenCmd signs a bearer token for local testing against JWT_SECRET.
func tokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign an access token for a user ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}

			token, err := middleware.SignToken(cfg.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			log.Printf("[CLI] Token signed: user=%s ttl=%s", args[0], ttl)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
