package main

import (
	"github.com/spf13/cobra"

	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/database"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return database.RunMigrations(sqlDB, env.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return database.RollbackMigrations(sqlDB, steps, env.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚的迁移数")

	cmd.AddCommand(up, down)
	return cmd
}
