package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CrazyForks/subconverter-go/internal/config"
	"github.com/CrazyForks/subconverter-go/internal/logger"
)

type rootFlags struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "subconverter-go",
		Short:         "订阅转换服务",
		Long:          "将代理订阅转换为 Clash、Surge、Quantumult X、Loon、sing-box 等客户端配置。",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Init(f.cfgFile)
			if err != nil {
				return err
			}
			if f.logLevel != "" {
				cfg.Log.Level = f.logLevel
			}
			if _, err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
				return fmt.Errorf("日志初始化失败：%w", err)
			}
			f.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&f.cfgFile, "config", "", "配置文件路径（默认读取 ./subconverter.yaml）")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "日志级别：debug/info/warn/error")

	root.AddCommand(newServeCmd(f), newConvertCmd(f), newHealthcheckCmd(f))
	return root
}
