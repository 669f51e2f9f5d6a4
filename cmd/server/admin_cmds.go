package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/explainer/internal/config"
	"github.com/explainer/internal/db"
	"github.com/explainer/internal/engagement"
	"github.com/spf13/cobra"
)

func newInitUserCmd(configFile *string) *cobra.Command {
	var (
		username string
		password string
		tier     string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:   "init-user",
		Short: "Create a learner account or sync its tier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
				return errors.New("--username and --password are required")
			}
			parsed := engagement.Tier(strings.ToLower(strings.TrimSpace(tier)))
			if !parsed.Valid() {
				return fmt.Errorf("unknown tier %q", tier)
			}

			if err := openDatabase(*configFile); err != nil {
				return err
			}
			user, err := db.EnsureUser(db.DB, db.UserInput{
				Username: username,
				Password: password,
				Tier:     parsed,
				IsAdmin:  admin,
			})
			if err != nil {
				return fmt.Errorf("创建用户失败: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "用户已就绪: %s (tier=%s, admin=%t)\n", user.Username, user.Tier, user.IsAdmin)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "login password, ignored for existing users")
	cmd.Flags().StringVar(&tier, "tier", string(engagement.TierFree), "free, starter or premium")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant access to the admin settings")
	return cmd
}

func newSeedAchievementsCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-achievements",
		Short: "Sync the built-in achievement catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// db.Init 会同步成就目录
			if err := openDatabase(*configFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已同步 %d 个成就\n", len(db.DefaultAchievements))
			return nil
		},
	}
}

func openDatabase(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := db.Init(cfg.DatabasePath); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	return nil
}
