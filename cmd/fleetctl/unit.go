package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
)

func newUnitCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unit",
		Short: "单位管理",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "创建单位",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("单位名称不能为空")
			}
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			unit := &model.Unit{Name: name}
			if err := repository.NewRepository(db).Unit.Create(cmd.Context(), unit); err != nil {
				return fmt.Errorf("创建单位失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已创建单位 %s (%s)\n", unit.Name, unit.UnitID)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "列出单位及用户数",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			repo := repository.NewRepository(db)
			units, err := repo.Unit.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\t名称\t用户数")
			for _, u := range units {
				n, err := repo.Unit.CountUsers(cmd.Context(), u.UnitID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", u.UnitID, u.Name, n)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
