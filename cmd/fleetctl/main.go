// fleetctl 运维命令行：数据库迁移、补生成巡检单、维护单位与用户
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "车辆检查表服务运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("FLEET_CONFIG"), "配置文件路径")

	env := &cliEnv{configPath: &configPath}
	root.AddCommand(
		newMigrateCmd(env),
		newGenerateCmd(env),
		newUnitCmd(env),
		newUserCmd(env),
	)
	return root
}
