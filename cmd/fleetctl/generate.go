package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/jwt"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/redis"
)

func newGenerateCmd(env *cliEnv) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "按自动规则为指定日期生成巡检单（默认今天）",
		Long: "执行一次与定时任务相同的生成批次。同一规则同一日期已存在巡检单时跳过，\n" +
			"可安全重复执行；用于补生成停机期间错过的日期。",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}

			at, err := generationTime(date, env.cfg.Scheduler.Location(), time.Now())
			if err != nil {
				return err
			}

			// 有 Redis 时事件照常推送给在线客户端
			rdb, err := redis.NewClient(&env.cfg.Redis, env.logger)
			if err != nil {
				env.logger.Warn("Redis 不可用，生成结果不推送事件", zap.Error(err))
				rdb = nil
			} else {
				defer rdb.Close()
			}

			svc := service.NewService(env.cfg, repository.NewRepository(db), jwt.NewManager(&env.cfg.Auth), rdb, nil, env.logger)
			report, err := svc.Generator.RunPass(cmd.Context(), at)
			if err != nil {
				return err
			}

			out, _ := json.MarshalIndent(report, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d 条规则生成失败", len(report.Failures))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "生成日期 YYYY-MM-DD（调度时区）")
	return cmd
}

// generationTime 指定日期时取当天中午，保证星期与日期在调度时区内不跨日
func generationTime(date string, loc *time.Location, now time.Time) (time.Time, error) {
	if date == "" {
		return now.In(loc), nil
	}
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效 %q，应为 YYYY-MM-DD", date)
	}
	return d.Add(12 * time.Hour), nil
}
