package main

import (
	"errors"
	"strings"
	"time"

	"intranet_admin/internal/model"
	"intranet_admin/internal/repository"
	"intranet_admin/internal/service"
	"intranet_admin/pkg/database"
	"intranet_admin/pkg/log"
	"intranet_admin/pkg/token"

	"github.com/spf13/cobra"
)

type createAdminOptions struct {
	Email      string
	Password   string
	FullName   string
	Department string
}

// newCreateAdminCmd 创建首个管理员账号。注册接口不接受客户端指定角色，管理员只能由此命令或已有管理员创建。
func newCreateAdminCmd(root *rootOptions) *cobra.Command {
	var opts createAdminOptions

	cmd := &cobra.Command{
		Use:   "create-admin --email <email> --password <password> --name <full name>",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.Email) == "" {
				return errors.New("--email is required")
			}
			if strings.TrimSpace(opts.Password) == "" {
				return errors.New("--password is required")
			}
			if strings.TrimSpace(opts.FullName) == "" {
				return errors.New("--name is required")
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.OpenMySQL(cfg.Database.MySQL.DSN)
			if err != nil {
				return err
			}
			rdb, err := database.OpenRedis(cmd.Context(), cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
			if err != nil {
				return err
			}
			defer rdb.Close()

			jwtManager := token.NewJWTManager(cfg.JWT.Secret,
				time.Duration(cfg.JWT.AccessTokenExpireHours)*time.Hour,
				time.Duration(cfg.JWT.RefreshTokenExpireDays)*24*time.Hour)
			authService := service.NewAuthService(repository.NewUserRepository(db), repository.NewSessionRepository(rdb), jwtManager)

			user, err := authService.SignUp(cmd.Context(), service.SignUpInput{
				Email:      opts.Email,
				Password:   opts.Password,
				FullName:   opts.FullName,
				Department: opts.Department,
				Role:       model.RoleAdmin,
			})
			if err != nil {
				return err
			}
			log.Infow("Administrator created", "userId", user.ID, "email", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "administrator email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "administrator password")
	cmd.Flags().StringVar(&opts.FullName, "name", "", "administrator full name")
	cmd.Flags().StringVar(&opts.Department, "department", "", "department")
	return cmd
}
