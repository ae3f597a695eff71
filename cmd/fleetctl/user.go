package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
)

func newUserCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "用户管理",
	}

	var (
		username string
		name     string
		role     string
		unitID   string
		password string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "创建用户",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := newUser(username, name, role, unitID, password)
			if err != nil {
				return err
			}

			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			repo := repository.NewRepository(db)
			if _, err := repo.Unit.GetByID(cmd.Context(), user.UnitID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("单位不存在: %s", user.UnitID)
				}
				return err
			}
			if err := repo.User.Create(cmd.Context(), user); err != nil {
				return fmt.Errorf("创建用户失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已创建用户 %s (%s)\n", user.Username, user.UserID)
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "登录名/工号")
	create.Flags().StringVar(&name, "name", "", "姓名")
	create.Flags().StringVar(&role, "role", string(model.RoleOperator), "角色 admin|chief|supervisor|operator")
	create.Flags().StringVar(&unitID, "unit", "", "所属单位 ID")
	create.Flags().StringVar(&password, "password", "", "初始密码")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("unit")
	_ = create.MarkFlagRequired("password")

	hash := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "输出 bcrypt 哈希（用于种子数据）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(h))
			return nil
		},
	}

	var listUnit string
	list := &cobra.Command{
		Use:   "list",
		Short: "列出单位内用户",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			users, err := repository.NewRepository(db).User.ListByUnit(cmd.Context(), listUnit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "用户名\t姓名\t角色\t状态")
			for _, u := range users {
				status := "启用"
				if !u.IsActive {
					status = "停用"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.Name, u.Role, status)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&listUnit, "unit", "", "单位 ID")
	_ = list.MarkFlagRequired("unit")

	cmd.AddCommand(create, hash, list, newSetActiveCmd(env, false), newSetActiveCmd(env, true))
	return cmd
}

// newSetActiveCmd 生成 enable / disable 子命令
func newSetActiveCmd(env *cliEnv, active bool) *cobra.Command {
	use, short, done := "disable <username>", "停用账号", "已停用"
	if active {
		use, short, done = "enable <username>", "启用账号", "已启用"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			if err := repository.NewRepository(db).User.SetActive(cmd.Context(), args[0], active); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("用户不存在: %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, args[0])
			return nil
		},
	}
}

// newUser 校验参数并生成待保存的用户
func newUser(username, name, role, unitID, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("用户名不能为空")
	}
	r := model.Role(role)
	if !r.Valid() {
		return nil, fmt.Errorf("角色无效: %q", role)
	}
	if _, err := uuid.Parse(unitID); err != nil {
		return nil, fmt.Errorf("单位 ID 无效: %q", unitID)
	}
	if len(password) < 8 {
		return nil, errors.New("密码至少 8 位")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = username
	}
	return &model.User{
		UserID:       uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Username:     username,
		PasswordHash: string(hash),
		Role:         r,
		UnitID:       unitID,
		IsActive:     true,
	}, nil
}
